package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/loomrt/loom/pkg/loomerr"
)

// PineconeConfig configures the managed-cloud Pinecone Provider.
type PineconeConfig struct {
	APIKey string
	Host   string
}

// PineconeProvider implements Provider against Pinecone, one Pinecone
// index per loom index name. Connections are opened lazily and cached
// per index, since each Pinecone index has its own host. Grounded on
// the teacher's pkg/vector/pinecone.go.
type PineconeProvider struct {
	client *pinecone.Client

	mu    sync.Mutex
	conns map[string]*pinecone.IndexConnection
}

func NewPineconeProvider(cfg PineconeConfig) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, loomerr.New(loomerr.Validation, "vector.NewPineconeProvider", fmt.Errorf("api key is required"))
	}
	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}
	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}
	return &PineconeProvider{client: client, conns: make(map[string]*pinecone.IndexConnection)}, nil
}

func (p *PineconeProvider) Name() string { return "pinecone" }

func (p *PineconeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *PineconeProvider) conn(ctx context.Context, name string) (*pinecone.IndexConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[name]; ok {
		return conn, nil
	}
	desc, err := p.client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, errUnknownIndex(name)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: desc.Host})
	if err != nil {
		return nil, fmt.Errorf("connect to index %q: %w", name, err)
	}
	p.conns[name] = conn
	return conn, nil
}

func metricToPinecone(m Metric) pinecone.IndexMetric {
	switch m {
	case MetricEuclidean:
		return pinecone.Euclidean
	case MetricDotProduct:
		return pinecone.Dotproduct
	default:
		return pinecone.Cosine
	}
}

func (p *PineconeProvider) CreateIndex(name string, dimension int, metric Metric) error {
	ctx := context.Background()
	dim32 := int32(dimension)
	pm := metricToPinecone(metric)
	_, err := p.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      name,
		Dimension: &dim32,
		Metric:    &pm,
	})
	if err != nil {
		return fmt.Errorf("create index %q: %w", name, err)
	}
	return nil
}

func (p *PineconeProvider) ListIndexes() ([]IndexInfo, error) {
	indexes, err := p.client.ListIndexes(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	out := make([]IndexInfo, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, IndexInfo{Name: idx.Name, Dimension: int(idx.Dimension), Metric: pineconeMetricToMetric(idx.Metric)})
	}
	return out, nil
}

func pineconeMetricToMetric(m pinecone.IndexMetric) Metric {
	switch m {
	case pinecone.Euclidean:
		return MetricEuclidean
	case pinecone.Dotproduct:
		return MetricDotProduct
	default:
		return MetricCosine
	}
}

func (p *PineconeProvider) DescribeIndex(name string) (IndexInfo, error) {
	desc, err := p.client.DescribeIndex(context.Background(), name)
	if err != nil {
		return IndexInfo{}, errUnknownIndex(name)
	}
	info := IndexInfo{Name: name, Dimension: int(desc.Dimension), Metric: pineconeMetricToMetric(desc.Metric)}

	if conn, err := p.conn(context.Background(), name); err == nil {
		if stats, err := conn.DescribeIndexStats(context.Background()); err == nil {
			info.Count = int(stats.TotalVectorCount)
		}
	}
	return info, nil
}

func (p *PineconeProvider) DeleteIndex(name string) error {
	p.mu.Lock()
	delete(p.conns, name)
	p.mu.Unlock()

	if err := p.client.DeleteIndex(context.Background(), name); err != nil {
		return fmt.Errorf("delete index %q: %w", name, err)
	}
	return nil
}

func (p *PineconeProvider) Upsert(name string, vectors [][]float32, ids []string, metadata []map[string]any) ([]string, error) {
	ctx := context.Background()
	conn, err := p.conn(ctx, name)
	if err != nil {
		return nil, err
	}

	vecs := make([]*pinecone.Vector, len(vectors))
	resultIDs := make([]string, len(vectors))
	for i, v := range vectors {
		id := ""
		if i < len(ids) && ids[i] != "" {
			id = ids[i]
		} else {
			id = uuid.NewString()
		}
		resultIDs[i] = id

		var md *pinecone.Metadata
		if i < len(metadata) && len(metadata[i]) > 0 {
			s, err := structpb.NewStruct(metadata[i])
			if err != nil {
				return nil, fmt.Errorf("convert metadata: %w", err)
			}
			md = s
		}
		vecs[i] = &pinecone.Vector{Id: id, Values: &v, Metadata: md}
	}

	if _, err := conn.UpsertVectors(ctx, vecs); err != nil {
		return nil, fmt.Errorf("upsert into %q: %w", name, err)
	}
	return resultIDs, nil
}

func (p *PineconeProvider) Query(name string, vector []float32, k int, filter Filter, includeVectors bool) ([]Match, error) {
	ctx := context.Background()
	conn, err := p.conn(ctx, name)
	if err != nil {
		return nil, err
	}

	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		IncludeValues:   includeVectors,
		IncludeMetadata: true,
	}
	if mf, ok := filterToPineconeStruct(filter); ok {
		req.MetadataFilter = mf
	}

	resp, err := conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		md := map[string]any{}
		if m.Vector.Metadata != nil {
			md = m.Vector.Metadata.AsMap()
		}
		match := Match{ID: m.Vector.Id, Score: m.Score, Metadata: md}
		if content, ok := md["content"].(string); ok {
			match.Content = content
		}
		if includeVectors && m.Vector.Values != nil {
			match.Vector = *m.Vector.Values
		}
		if !filter.IsZero() && !filter.Match(md) {
			continue
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func filterToPineconeStruct(f Filter) (*structpb.Struct, bool) {
	if f.Eq == nil {
		return nil, false
	}
	s, err := structpb.NewStruct(map[string]any{f.Eq.Field: f.Eq.Value})
	if err != nil {
		return nil, false
	}
	return s, true
}

func (p *PineconeProvider) UpdateByID(name string, id string, v []float32, metadata map[string]any) error {
	_, err := p.Upsert(name, [][]float32{v}, []string{id}, []map[string]any{metadata})
	return err
}

func (p *PineconeProvider) DeleteByID(name string, id string) error {
	conn, err := p.conn(context.Background(), name)
	if err != nil {
		return err
	}
	if err := conn.DeleteVectorsById(context.Background(), []string{id}); err != nil {
		return fmt.Errorf("delete %q/%q: %w", name, id, err)
	}
	return nil
}

var _ Provider = (*PineconeProvider)(nil)
