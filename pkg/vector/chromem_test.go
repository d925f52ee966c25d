package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *ChromemProvider {
	t.Helper()
	p, err := NewChromemProvider("", false)
	require.NoError(t, err)
	return p
}

func TestChromem_CreateIndexThenDescribe(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 3, MetricCosine))

	info, err := p.DescribeIndex("docs")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, MetricCosine, info.Metric)
	assert.Equal(t, 0, info.Count)
}

func TestChromem_DescribeUnknownIndexFails(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.DescribeIndex("missing")
	assert.Error(t, err)
}

func TestChromem_CreateDuplicateIndexFails(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 3, MetricCosine))
	err := p.CreateIndex("docs", 3, MetricCosine)
	assert.Error(t, err)
}

func TestChromem_UpsertDimensionMismatchFails(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 3, MetricCosine))

	_, err := p.Upsert("docs", [][]float32{{1, 2}}, nil, nil)
	assert.Error(t, err)
}

func TestChromem_UpsertThenQueryReturnsClosestMatch(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 2, MetricCosine))

	ids, err := p.Upsert("docs",
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
		nil,
		[]map[string]any{
			{"content": "about cats", "topic": "animals"},
			{"content": "about cars", "topic": "vehicles"},
			{"content": "about kittens", "topic": "animals"},
		})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	matches, err := p.Query("docs", []float32{1, 0}, 2, Filter{}, false)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Contains(t, []string{"about cats", "about kittens"}, matches[0].Content)
}

func TestChromem_QueryAppliesMetadataFilter(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 2, MetricCosine))
	_, err := p.Upsert("docs",
		[][]float32{{1, 0}, {0.9, 0.1}},
		nil,
		[]map[string]any{
			{"content": "cats", "topic": "animals"},
			{"content": "cars", "topic": "vehicles"},
		})
	require.NoError(t, err)

	matches, err := p.Query("docs", []float32{1, 0}, 5, Eq("topic", "vehicles"), false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cars", matches[0].Content)
}

func TestChromem_DeleteByIDRemovesVector(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 2, MetricCosine))
	ids, err := p.Upsert("docs", [][]float32{{1, 0}}, []string{"a"}, []map[string]any{{"content": "x"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids)

	require.NoError(t, p.DeleteByID("docs", "a"))
	assert.Error(t, p.DeleteByID("docs", "a"))
}

func TestChromem_DeleteIndexRemovesIt(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.CreateIndex("docs", 2, MetricCosine))
	require.NoError(t, p.DeleteIndex("docs"))

	_, err := p.DescribeIndex("docs")
	assert.Error(t, err)
}
