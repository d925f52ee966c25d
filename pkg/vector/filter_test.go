package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Eq(t *testing.T) {
	f := Eq("category", "docs")
	assert.True(t, f.Match(map[string]any{"category": "docs"}))
	assert.False(t, f.Match(map[string]any{"category": "code"}))
	assert.False(t, f.Match(map[string]any{}))
}

func TestFilter_In(t *testing.T) {
	f := In("category", "docs", "faq")
	assert.True(t, f.Match(map[string]any{"category": "faq"}))
	assert.False(t, f.Match(map[string]any{"category": "code"}))
}

func TestFilter_Range(t *testing.T) {
	f := Between("score", 0.5, 0.9)
	assert.True(t, f.Match(map[string]any{"score": 0.7}))
	assert.False(t, f.Match(map[string]any{"score": 0.2}))
	assert.False(t, f.Match(map[string]any{"score": 1.0}))
	assert.False(t, f.Match(map[string]any{}))
}

func TestFilter_AndOr(t *testing.T) {
	f := And(Eq("lang", "go"), Or(Eq("level", "beginner"), Eq("level", "advanced")))

	assert.True(t, f.Match(map[string]any{"lang": "go", "level": "beginner"}))
	assert.True(t, f.Match(map[string]any{"lang": "go", "level": "advanced"}))
	assert.False(t, f.Match(map[string]any{"lang": "go", "level": "intermediate"}))
	assert.False(t, f.Match(map[string]any{"lang": "rust", "level": "beginner"}))
}

func TestFilter_ZeroMatchesEverything(t *testing.T) {
	var f Filter
	assert.True(t, f.IsZero())
	assert.True(t, f.Match(map[string]any{}))
	assert.True(t, f.Match(map[string]any{"anything": 1}))
}
