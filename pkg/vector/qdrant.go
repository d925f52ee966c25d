package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/loomrt/loom/pkg/loomerr"
)

// QdrantConfig configures the Qdrant-backed Provider.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantProvider implements Provider against a Qdrant server, one
// Qdrant collection per loom index. Grounded on the teacher's
// pkg/vector/qdrant.go, generalized to the full index lifecycle and
// to the Filter language: Eq conditions (alone or under And) become a
// native qdrant.Filter, and every non-zero Filter, including its In,
// Range and Or parts, is also checked client-side on the points Qdrant
// returns. Those client-side checks run after Qdrant's top-k limit, so
// a query can return fewer than k matches.
type QdrantProvider struct {
	client *qdrant.Client
}

func NewQdrantProvider(cfg QdrantConfig) (*QdrantProvider, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantProvider{client: client}, nil
}

func (p *QdrantProvider) Name() string { return "qdrant" }

func (p *QdrantProvider) Close() error { return p.client.Close() }

func metricToQdrantDistance(m Metric) qdrant.Distance {
	switch m {
	case MetricEuclidean:
		return qdrant.Distance_Euclid
	case MetricDotProduct:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func (p *QdrantProvider) CreateIndex(name string, dimension int, metric Metric) error {
	ctx := context.Background()
	exists, err := p.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", name, err)
	}
	if exists {
		return loomerr.New(loomerr.Validation, "vector.CreateIndex", fmt.Errorf("index %q already exists", name))
	}
	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: metricToQdrantDistance(metric),
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	return nil
}

func (p *QdrantProvider) ListIndexes() ([]IndexInfo, error) {
	names, err := p.client.ListCollections(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]IndexInfo, 0, len(names))
	for _, name := range names {
		info, err := p.DescribeIndex(name)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (p *QdrantProvider) DescribeIndex(name string) (IndexInfo, error) {
	ctx := context.Background()
	exists, err := p.client.CollectionExists(ctx, name)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("check collection %q: %w", name, err)
	}
	if !exists {
		return IndexInfo{}, errUnknownIndex(name)
	}
	info, err := p.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("describe collection %q: %w", name, err)
	}
	out := IndexInfo{Name: name, Metric: MetricCosine}
	if info.GetPointsCount() > 0 {
		out.Count = int(info.GetPointsCount())
	}
	if params := info.GetConfig().GetParams(); params != nil {
		if vp := params.GetVectorsConfig().GetParams(); vp != nil {
			out.Dimension = int(vp.GetSize())
			switch vp.GetDistance() {
			case qdrant.Distance_Euclid:
				out.Metric = MetricEuclidean
			case qdrant.Distance_Dot:
				out.Metric = MetricDotProduct
			}
		}
	}
	return out, nil
}

func (p *QdrantProvider) DeleteIndex(name string) error {
	if err := p.client.DeleteCollection(context.Background(), name); err != nil {
		return fmt.Errorf("delete collection %q: %w", name, err)
	}
	return nil
}

func (p *QdrantProvider) Upsert(name string, vectors [][]float32, ids []string, metadata []map[string]any) ([]string, error) {
	ctx := context.Background()
	points := make([]*qdrant.PointStruct, len(vectors))
	resultIDs := make([]string, len(vectors))

	for i, v := range vectors {
		id := ""
		if i < len(ids) && ids[i] != "" {
			id = ids[i]
		} else {
			id = uuid.NewString()
		}
		resultIDs[i] = id

		var md map[string]any
		if i < len(metadata) {
			md = metadata[i]
		}
		payload := make(map[string]*qdrant.Value, len(md))
		for k, val := range md {
			qv, err := qdrant.NewValue(val)
			if err != nil {
				return nil, fmt.Errorf("convert metadata field %q: %w", k, err)
			}
			payload[k] = qv
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(v...),
			Payload: payload,
		}
	}

	if _, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: name, Points: points}); err != nil {
		return nil, fmt.Errorf("upsert into %q: %w", name, err)
	}
	return resultIDs, nil
}

func (p *QdrantProvider) Query(name string, vector []float32, k int, filter Filter, includeVectors bool) ([]Match, error) {
	req := &qdrant.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(includeVectors),
	}
	if qf, ok := filterToQdrant(filter); ok {
		req.Filter = qf
	}

	result, err := p.client.GetPointsClient().Search(context.Background(), req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", name, err)
	}

	matches := make([]Match, 0, len(result.GetResult()))
	for _, point := range result.GetResult() {
		m := Match{Score: point.GetScore(), Metadata: pointPayloadToMetadata(point.GetPayload())}
		if point.GetId() != nil {
			switch id := point.GetId().GetPointIdOptions().(type) {
			case *qdrant.PointId_Uuid:
				m.ID = id.Uuid
			case *qdrant.PointId_Num:
				m.ID = fmt.Sprintf("%d", id.Num)
			}
		}
		if content, ok := m.Metadata["content"].(string); ok {
			m.Content = content
		}
		if includeVectors && point.GetVectors().GetVector().GetDense() != nil {
			m.Vector = point.GetVectors().GetVector().GetDense().GetData()
		}

		// Only Eq conditions reach Qdrant natively; re-check the whole
		// filter client-side so In, Range and Or conditions apply too.
		if !filter.IsZero() && !filter.Match(m.Metadata) {
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (p *QdrantProvider) UpdateByID(name string, id string, v []float32, metadata map[string]any) error {
	_, err := p.Upsert(name, [][]float32{v}, []string{id}, []map[string]any{metadata})
	return err
}

func (p *QdrantProvider) DeleteByID(name string, id string) error {
	_, err := p.client.Delete(context.Background(), &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(id)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete %q/%q: %w", name, id, err)
	}
	return nil
}

func isConjunctionOnly(f Filter) bool {
	if len(f.Or) > 0 {
		return false
	}
	for _, sub := range f.And {
		if !isConjunctionOnly(sub) {
			return false
		}
	}
	return true
}

func filterToQdrant(f Filter) (*qdrant.Filter, bool) {
	if f.IsZero() || !isConjunctionOnly(f) {
		return nil, false
	}
	var conditions []*qdrant.Condition
	var collect func(Filter)
	collect = func(f Filter) {
		switch {
		case f.Eq != nil:
			val, err := qdrant.NewValue(f.Eq.Value)
			if err != nil {
				return
			}
			conditions = append(conditions, &qdrant.Condition{ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{Key: f.Eq.Field, Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: val.GetStringValue()}}},
			}})
		case len(f.And) > 0:
			for _, sub := range f.And {
				collect(sub)
			}
		}
	}
	collect(f)
	if len(conditions) == 0 {
		return nil, false
	}
	return &qdrant.Filter{Must: conditions}, true
}

func pointPayloadToMetadata(payload map[string]*qdrant.Value) map[string]any {
	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			metadata[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			metadata[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			metadata[key] = v.DoubleValue
		case *qdrant.Value_BoolValue:
			metadata[key] = v.BoolValue
		}
	}
	return metadata
}

var _ Provider = (*QdrantProvider)(nil)
