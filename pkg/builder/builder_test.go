package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomrt/loom/pkg/memory"
)

func TestBuild_ValidConfigSucceeds(t *testing.T) {
	cfg, report, err := New("test-agent").
		WithInstructions("You are a helpful assistant.").
		WithModel("claude-sonnet-4").
		WithTemperature(0.7).
		WithMaxTokens(1000).
		WithTools("calculator").
		WithMaxToolCalls(5).
		WithToolTimeout(time.Second).
		Build()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, report.IsValid())
	assert.NotEmpty(t, report.Successes)
}

func TestBuild_MissingNameFails(t *testing.T) {
	_, report, err := New("").WithModel("gpt-4o").Build()
	require.Error(t, err)
	assert.Contains(t, report.Errors[0], "name is required")
}

func TestBuild_NameTooLongFails(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err := New(string(long)).WithModel("gpt-4o").Build()
	assert.Error(t, err)
}

func TestBuild_InvalidTemperatureFails(t *testing.T) {
	_, report, err := New("a").WithModel("gpt-4o").WithTemperature(3.0).Build()
	require.Error(t, err)
	found := false
	for _, e := range report.Errors {
		if e != "" {
			found = found || containsSubstring(e, "temperature")
		}
	}
	assert.True(t, found)
}

func TestBuild_InvalidMaxTokensFails(t *testing.T) {
	_, _, err := New("a").WithModel("gpt-4o").WithMaxTokens(0).Build()
	assert.Error(t, err)

	_, _, err = New("a").WithModel("gpt-4o").WithMaxTokens(200_000).Build()
	assert.Error(t, err)
}

func TestBuild_DuplicateToolIdsFails(t *testing.T) {
	_, report, err := New("a").WithModel("gpt-4o").WithTools("search", "search").Build()
	require.Error(t, err)
	assert.Contains(t, report.Errors, `duplicate tool id "search"`)
}

func TestBuild_UnresolvedModelFails(t *testing.T) {
	resolver := func(ref string) bool { return ref == "gpt-4o" }
	_, _, err := New("a").WithModel("made-up-model").WithModelResolver(resolver).Build()
	assert.Error(t, err)

	_, _, err = New("a").WithModel("gpt-4o").WithModelResolver(resolver).Build()
	assert.NoError(t, err)
}

func TestBuild_SmartDefaultsFillsLimits(t *testing.T) {
	cfg, report, err := New("a").WithModel("gpt-4o").SmartDefaults().Build()
	require.NoError(t, err)
	assert.Equal(t, defaultMaxToolCalls, cfg.MaxToolCalls)
	assert.Greater(t, cfg.ToolTimeout, time.Duration(0))
	require.NotNil(t, cfg.Memory)
	assert.Equal(t, memory.RetentionKeepRecent, cfg.Memory.Policy.Kind)
	assert.Equal(t, true, cfg.Metadata["telemetry_enabled"])
	assert.Empty(t, report.Warnings)
}

func TestBuild_WarningsDoNotBlock(t *testing.T) {
	cfg, report, err := New("a").WithModel("gpt-4o").Build()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.NotEmpty(t, report.Warnings)
}

func containsSubstring(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
