package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/loomrt/loom/pkg/loomerr"
)

// ChromemProvider is the embedded, zero-config default Provider,
// backed by chromem-go. It requires no external service and keeps
// every index in a single in-process chromem.DB, optionally
// persisted to disk.
//
// Grounded on the teacher's pkg/vector/chromem.go; generalized from a
// single hard-coded "collection" parameter to the full index lifecycle
// (CreateIndex/DescribeIndex/DeleteIndex) §4.8 requires, and from a
// map[string]string where-filter to the Filter language evaluated
// client-side so And/Or/range filters (which chromem's native where
// clause cannot express) still work.
type ChromemProvider struct {
	db *chromem.DB

	mu      sync.RWMutex
	indexes map[string]IndexInfo
	cols    map[string]*chromem.Collection

	identityEmbed chromem.EmbeddingFunc
}

// NewChromemProvider opens (or creates) an in-memory chromem database.
// persistPath, when non-empty, enables gob-file persistence.
func NewChromemProvider(persistPath string, compress bool) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, compress)
		if err != nil {
			return nil, fmt.Errorf("open persistent vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemProvider{
		db:      db,
		indexes: make(map[string]IndexInfo),
		cols:    make(map[string]*chromem.Collection),
		identityEmbed: func(context.Context, string) ([]float32, error) {
			return nil, fmt.Errorf("chromem provider receives pre-computed embeddings, it does not embed text itself")
		},
	}, nil
}

func (p *ChromemProvider) Name() string { return "chromem" }

func (p *ChromemProvider) Close() error { return nil }

func (p *ChromemProvider) CreateIndex(name string, dimension int, metric Metric) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.indexes[name]; exists {
		return loomerr.New(loomerr.Validation, "vector.CreateIndex", fmt.Errorf("index %q already exists", name))
	}
	col, err := p.db.GetOrCreateCollection(name, nil, p.identityEmbed)
	if err != nil {
		return fmt.Errorf("create chromem collection %q: %w", name, err)
	}
	p.cols[name] = col
	p.indexes[name] = IndexInfo{Name: name, Dimension: dimension, Metric: metric}
	return nil
}

func (p *ChromemProvider) ListIndexes() ([]IndexInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]IndexInfo, 0, len(p.indexes))
	for name, info := range p.indexes {
		info.Count = p.cols[name].Count()
		out = append(out, info)
	}
	return out, nil
}

func (p *ChromemProvider) DescribeIndex(name string) (IndexInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info, ok := p.indexes[name]
	if !ok {
		return IndexInfo{}, errUnknownIndex(name)
	}
	info.Count = p.cols[name].Count()
	return info, nil
}

func (p *ChromemProvider) DeleteIndex(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.indexes[name]; !ok {
		return errUnknownIndex(name)
	}
	if err := p.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete chromem collection %q: %w", name, err)
	}
	delete(p.indexes, name)
	delete(p.cols, name)
	return nil
}

func (p *ChromemProvider) collection(name string) (*chromem.Collection, IndexInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info, ok := p.indexes[name]
	if !ok {
		return nil, IndexInfo{}, errUnknownIndex(name)
	}
	return p.cols[name], info, nil
}

func (p *ChromemProvider) Upsert(name string, vectors [][]float32, ids []string, metadata []map[string]any) ([]string, error) {
	col, info, err := p.collection(name)
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, len(vectors))
	resultIDs := make([]string, len(vectors))
	for i, v := range vectors {
		if info.Dimension > 0 && len(v) != info.Dimension {
			return nil, errDimensionMismatch(name, info.Dimension, len(v))
		}
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
		strMeta := make(map[string]string, len(md))
		content := ""
		for k, val := range md {
			if k == "content" {
				if s, ok := val.(string); ok {
					content = s
					continue
				}
			}
			strMeta[k] = fmt.Sprint(val)
		}

		docs[i] = chromem.Document{ID: id, Content: content, Metadata: strMeta, Embedding: v}
	}

	if err := col.AddDocuments(context.Background(), docs, 1); err != nil {
		return nil, fmt.Errorf("upsert into %q: %w", name, err)
	}
	return resultIDs, nil
}

func (p *ChromemProvider) Query(name string, vector []float32, k int, filter Filter, includeVectors bool) ([]Match, error) {
	col, info, err := p.collection(name)
	if err != nil {
		return nil, err
	}
	if info.Dimension > 0 && len(vector) != info.Dimension {
		return nil, errDimensionMismatch(name, info.Dimension, len(vector))
	}

	// Filters are evaluated before ranking (§4.8): request every
	// stored vector from chromem, apply the Filter language
	// client-side (chromem's native where-clause is flat equality
	// only and can't express And/Or/range), then take the top k.
	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	candidates, err := col.QueryEmbedding(context.Background(), vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}

	matches := make([]Match, 0, k)
	for _, c := range candidates {
		md := make(map[string]any, len(c.Metadata))
		for key, val := range c.Metadata {
			md[key] = val
		}
		if !filter.IsZero() && !filter.Match(md) {
			continue
		}
		m := Match{ID: c.ID, Score: c.Similarity, Metadata: md, Content: c.Content}
		if includeVectors {
			m.Vector = c.Embedding
		}
		matches = append(matches, m)
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

func (p *ChromemProvider) UpdateByID(name string, id string, v []float32, metadata map[string]any) error {
	col, info, err := p.collection(name)
	if err != nil {
		return err
	}
	if info.Dimension > 0 && len(v) != info.Dimension {
		return errDimensionMismatch(name, info.Dimension, len(v))
	}
	if _, err := col.GetByID(context.Background(), id); err != nil {
		return errUnknownID(name, id)
	}

	strMeta := make(map[string]string, len(metadata))
	content := ""
	for k, val := range metadata {
		if k == "content" {
			if s, ok := val.(string); ok {
				content = s
				continue
			}
		}
		strMeta[k] = fmt.Sprint(val)
	}
	doc := chromem.Document{ID: id, Content: content, Metadata: strMeta, Embedding: v}
	if err := col.AddDocuments(context.Background(), []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("update %q/%q: %w", name, id, err)
	}
	return nil
}

func (p *ChromemProvider) DeleteByID(name string, id string) error {
	col, _, err := p.collection(name)
	if err != nil {
		return err
	}
	if _, err := col.GetByID(context.Background(), id); err != nil {
		return errUnknownID(name, id)
	}
	if err := col.Delete(context.Background(), nil, nil, id); err != nil {
		return fmt.Errorf("delete %q/%q: %w", name, id, err)
	}
	return nil
}

var _ Provider = (*ChromemProvider)(nil)
