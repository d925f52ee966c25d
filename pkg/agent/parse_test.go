package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTextualToolCalls_FencedBlock(t *testing.T) {
	text := "Sure, let me check that.\n```json\n{\"tool\": \"calculator\", \"arguments\": {\"operation\": \"add\", \"a\": 1, \"b\": 2}}\n```\n"
	calls := parseTextualToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "calculator", calls[0].Name)
	assert.Equal(t, "add", calls[0].Arguments["operation"])
}

func TestParseTextualToolCalls_SentinelLine(t *testing.T) {
	text := `Using the tool 'calculator' with parameters: {"operation": "multiply", "a": 3, "b": 4}`
	calls := parseTextualToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "calculator", calls[0].Name)
}

func TestParseTextualToolCalls_FunctionCallPattern(t *testing.T) {
	text := `calculator({"operation": "subtract", "a": 10, "b": 4})`
	calls := parseTextualToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "calculator", calls[0].Name)
}

func TestParseTextualToolCalls_PlainTextIsNotAToolCall(t *testing.T) {
	assert.Empty(t, parseTextualToolCalls("The answer is 42."))
}

func TestParseTextualToolCalls_MalformedNeverPanics(t *testing.T) {
	inputs := []string{
		"```json\n{not valid json\n```",
		"Using the tool 'x' with parameters: {broken",
		"weird(((()))",
		"",
		"```json\n{}\n```",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { parseTextualToolCalls(in) })
	}
}
