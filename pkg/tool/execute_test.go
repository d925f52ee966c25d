package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/schema"
)

func TestExecuteCalls_Success(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewCalculatorTool()))

	calls := []schema.ToolCall{
		{ID: "1", Name: "calculator", Arguments: map[string]any{"operation": "multiply", "a": 12.0, "b": 5.0}},
	}
	results := ExecuteCalls(context.Background(), reg, calls, ExecuteOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, schema.StatusSuccess, results[0].Status)
	assert.Equal(t, "1", results[0].CallID)
	m, ok := results[0].Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 60.0, m["result"])
}

func TestExecuteCalls_NotFound(t *testing.T) {
	reg := NewRegistry()
	calls := []schema.ToolCall{{ID: "x", Name: "missing"}}
	results := ExecuteCalls(context.Background(), reg, calls, ExecuteOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, schema.StatusError, results[0].Status)
	assert.Equal(t, string(loomerr.NotFound), results[0].ErrorKind)
}

func TestExecuteCalls_ValidationError(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewCalculatorTool()))
	calls := []schema.ToolCall{{ID: "1", Name: "calculator", Arguments: map[string]any{"operation": "add"}}}
	results := ExecuteCalls(context.Background(), reg, calls, ExecuteOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, schema.StatusError, results[0].Status)
	assert.Equal(t, string(loomerr.Validation), results[0].ErrorKind)
}

func TestExecuteCalls_Timeout(t *testing.T) {
	reg := NewRegistry()
	slow := NewFunc("slow", "sleeps", schema.ToolSchema{}, true, func(ctx Context, args map[string]any) (any, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	require.NoError(t, reg.Register(slow))

	calls := []schema.ToolCall{{ID: "1", Name: "slow"}}
	results := ExecuteCalls(context.Background(), reg, calls, ExecuteOptions{Timeout: 20 * time.Millisecond})
	require.Len(t, results, 1)
	assert.Equal(t, schema.StatusError, results[0].Status)
	assert.Equal(t, string(loomerr.Timeout), results[0].ErrorKind)
}

func TestExecuteCalls_PanicRecovered(t *testing.T) {
	reg := NewRegistry()
	boom := NewFunc("boom", "panics", schema.ToolSchema{}, true, func(ctx Context, args map[string]any) (any, error) {
		panic("kaboom")
	})
	require.NoError(t, reg.Register(boom))

	calls := []schema.ToolCall{{ID: "1", Name: "boom"}}
	assert.NotPanics(t, func() {
		results := ExecuteCalls(context.Background(), reg, calls, ExecuteOptions{})
		require.Len(t, results, 1)
		assert.Equal(t, schema.StatusError, results[0].Status)
	})
}

func TestExecuteCalls_ParallelWhenSideEffectFree(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewCalculatorTool()))
	calls := []schema.ToolCall{
		{ID: "1", Name: "calculator", Arguments: map[string]any{"operation": "add", "a": 1.0, "b": 1.0}},
		{ID: "2", Name: "calculator", Arguments: map[string]any{"operation": "add", "a": 2.0, "b": 2.0}},
	}
	start := time.Now()
	results := ExecuteCalls(context.Background(), reg, calls, ExecuteOptions{})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].CallID)
	assert.Equal(t, "2", results[1].CallID)
}
