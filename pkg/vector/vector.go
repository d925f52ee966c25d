// Package vector implements the vector store contract (§4.8): index
// lifecycle, upsert/query with metadata filtering, and the RAG context
// pipeline that turns retrieval results into a token-bounded
// ManagedContext. The embedded chromem-go provider is the zero-config
// default; Qdrant and Pinecone providers are thin adapters over their
// respective clients, grounded on the teacher's pkg/vector package.
package vector

import (
	"fmt"

	"github.com/loomrt/loom/pkg/loomerr"
)

// Metric identifies the distance function an index was created with.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
	MetricDotProduct Metric = "dot_product"
)

// IndexInfo describes a named index, per §4.2's VectorIndex type.
type IndexInfo struct {
	Name      string
	Dimension int
	Metric    Metric
	Count     int
}

// Match is one scored hit returned by Query. Score is always
// normalized so that larger is more similar, regardless of the
// index's underlying Metric — providers are responsible for the sign
// convention flip documented in §4.8.
type Match struct {
	ID       string
	Score    float32
	Vector   []float32
	Metadata map[string]any
	Content  string
}

// Provider is the vector store contract consumed by the RAG context
// pipeline and by pkg/builder-constructed agents. Every method takes
// an index name first, matching the teacher's per-collection
// addressing style in pkg/vector.
type Provider interface {
	CreateIndex(name string, dimension int, metric Metric) error
	ListIndexes() ([]IndexInfo, error)
	DescribeIndex(name string) (IndexInfo, error)
	DeleteIndex(name string) error

	// Upsert stores vectors under ids (generating one per vector when
	// ids is nil or shorter than vectors) and returns the final ids.
	Upsert(name string, vectors [][]float32, ids []string, metadata []map[string]any) ([]string, error)

	Query(name string, vector []float32, k int, filter Filter, includeVectors bool) ([]Match, error)

	UpdateByID(name string, id string, vector []float32, metadata map[string]any) error
	DeleteByID(name string, id string) error

	Name() string
	Close() error
}

func errUnknownIndex(name string) error {
	return loomerr.New(loomerr.NotFound, "vector", fmt.Errorf("index %q does not exist", name))
}

func errDimensionMismatch(name string, want, got int) error {
	return loomerr.New(loomerr.Validation, "vector", fmt.Errorf("index %q expects dimension %d, got %d", name, want, got))
}

func errUnknownID(name, id string) error {
	return loomerr.New(loomerr.NotFound, "vector", fmt.Errorf("index %q has no vector with id %q", name, id))
}
