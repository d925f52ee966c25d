package vector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs() []Document {
	return []Document{
		{ID: "1", Content: "short doc", Score: 0.9},
		{ID: "2", Content: "another short document", Score: 0.8},
		{ID: "3", Content: "this is a longer document with considerably more content in it", Score: 0.7},
	}
}

func TestBuildContext_FixedWindowTruncatesToMaxDocuments(t *testing.T) {
	cfg := ContextConfig{MaxDocuments: 2, MaxTokens: 10_000, Window: WindowStrategy{Kind: WindowFixed}}
	ctx, err := BuildContext(cfg, docs())
	require.NoError(t, err)
	assert.Len(t, ctx.Documents, 2)
	assert.Equal(t, "1", ctx.Documents[0].ID)
	assert.Equal(t, "2", ctx.Documents[1].ID)
	assert.LessOrEqual(t, ctx.TotalTokens, cfg.MaxTokens)
}

func TestBuildContext_MinRelevanceScoreFiltersBeforeRanking(t *testing.T) {
	cfg := ContextConfig{
		MaxDocuments:      10,
		MaxTokens:         10_000,
		MinRelevanceScore: floatPtr(0.75),
	}
	ctx, err := BuildContext(cfg, docs())
	require.NoError(t, err)
	assert.Len(t, ctx.Documents, 2)
	for _, d := range ctx.Documents {
		assert.GreaterOrEqual(t, d.Score, float32(0.75))
	}
}

func TestBuildContext_LengthRankingOrdersByContentLength(t *testing.T) {
	cfg := ContextConfig{
		MaxDocuments: 10,
		MaxTokens:    10_000,
		Ranking:      RankingStrategy{Kind: RankingLength},
	}
	ctx, err := BuildContext(cfg, docs())
	require.NoError(t, err)
	require.Len(t, ctx.Documents, 3)
	assert.Equal(t, "3", ctx.Documents[0].ID)
}

func TestBuildContext_RecencyRankingPrefersNewerTimestamps(t *testing.T) {
	now := time.Now()
	input := []Document{
		{ID: "old", Content: "old", Score: 0.5, Metadata: map[string]any{"timestamp": now.Add(-48 * time.Hour).Format(time.RFC3339)}},
		{ID: "new", Content: "new", Score: 0.5, Metadata: map[string]any{"timestamp": now.Format(time.RFC3339)}},
	}
	cfg := ContextConfig{MaxDocuments: 10, MaxTokens: 10_000, Ranking: RankingStrategy{Kind: RankingRecency}}
	ctx, err := BuildContext(cfg, input)
	require.NoError(t, err)
	require.Len(t, ctx.Documents, 2)
	assert.Equal(t, "new", ctx.Documents[0].ID)
}

func TestBuildContext_AdaptiveWindowAdmitsHighScoreDocBeyondNormalCap(t *testing.T) {
	input := []Document{
		{ID: "1", Content: "high quality doc", Score: 0.95},
		{ID: "2", Content: "medium quality doc", Score: 0.7},
		{ID: "3", Content: "low quality doc", Score: 0.3},
	}
	cfg := ContextConfig{
		MaxDocuments: 2,
		MaxTokens:    10_000,
		Window:       WindowStrategy{Kind: WindowAdaptive, MinDocuments: 1, MaxDocuments: 5},
	}
	ctx, err := BuildContext(cfg, input)
	require.NoError(t, err)
	require.NotEmpty(t, ctx.Documents)
	assert.Equal(t, "1", ctx.Documents[0].ID)
}

func TestBuildContext_HierarchicalWindowSortsByScoreAndRespectsLevels(t *testing.T) {
	input := []Document{
		{ID: "1", Content: "doc 1", Score: 0.9},
		{ID: "2", Content: "doc 2", Score: 0.8},
		{ID: "3", Content: "doc 3", Score: 0.7},
		{ID: "4", Content: "doc 4", Score: 0.6},
	}
	cfg := ContextConfig{
		MaxDocuments: 10,
		MaxTokens:    10_000,
		Window:       WindowStrategy{Kind: WindowHierarchical, Levels: []int{2, 3, 5}},
	}
	ctx, err := BuildContext(cfg, input)
	require.NoError(t, err)
	require.Len(t, ctx.Documents, 4)
	assert.Equal(t, "1", ctx.Documents[0].ID)
	assert.Equal(t, "2", ctx.Documents[1].ID)
}

func TestBuildContext_DedupeCompressionDropsNearDuplicates(t *testing.T) {
	input := []Document{
		{ID: "1", Content: "Hello   world", Score: 0.9},
		{ID: "2", Content: "hello world", Score: 0.8},
	}
	cfg := ContextConfig{
		MaxDocuments: 10,
		MaxTokens:    10_000,
		Compression:  CompressionStrategy{Kind: CompressionDedup},
	}
	ctx, err := BuildContext(cfg, input)
	require.NoError(t, err)
	assert.Len(t, ctx.Documents, 1)
}

func TestBuildContext_CompressionRatioNeverExceedsOne(t *testing.T) {
	cfg := ContextConfig{
		MaxDocuments: 10,
		MaxTokens:    10_000,
		Compression:  CompressionStrategy{Kind: CompressionSummarize, MaxLength: 5},
	}
	ctx, err := BuildContext(cfg, docs())
	require.NoError(t, err)
	assert.LessOrEqual(t, ctx.CompressionRatio, float32(1.0))
}

func TestBuildContext_TotalTokensNeverExceedsMaxTokens(t *testing.T) {
	cfg := ContextConfig{MaxDocuments: 10, MaxTokens: 5}
	ctx, err := BuildContext(cfg, docs())
	require.NoError(t, err)
	assert.LessOrEqual(t, ctx.TotalTokens, cfg.MaxTokens)
}

func floatPtr(f float32) *float32 { return &f }
