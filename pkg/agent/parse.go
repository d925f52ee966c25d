package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/loomrt/loom/pkg/schema"
)

// fencedBlockRE matches a fenced code block (```...``` or ```json...```)
// so its interior can be probed for a tool-call JSON object.
var fencedBlockRE = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// sentinelLineRE matches "Using the tool 'NAME' with parameters: {json}".
var sentinelLineRE = regexp.MustCompile(`(?s)Using the tool '([^']+)' with parameters:\s*(\{.*\})`)

// functionCallRE matches a bare NAME({json}) call pattern.
var functionCallRE = regexp.MustCompile(`(?s)([A-Za-z_][A-Za-z0-9_]*)\((\{.*?\})\)`)

// parseTextualToolCalls extracts tool calls from completed assistant text
// when the provider has no native function-calling support (§4.6). It
// tries, in priority order: a fenced JSON block, a sentinel line, then a
// function-call-like pattern. It never panics; anything it cannot parse
// cleanly degrades to "no tool calls" so the raw text stands as the
// final answer.
func parseTextualToolCalls(text string) []schema.ToolCall {
	if calls := tryFencedBlock(text); len(calls) > 0 {
		return calls
	}
	if calls := trySentinelLine(text); len(calls) > 0 {
		return calls
	}
	if calls := tryFunctionCallPattern(text); len(calls) > 0 {
		return calls
	}
	return nil
}

func tryFencedBlock(text string) []schema.ToolCall {
	m := fencedBlockRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(m[1]), &obj); err != nil {
		return nil
	}
	name, _ := obj["tool"].(string)
	if name == "" {
		name, _ = obj["name"].(string)
	}
	if name == "" {
		return nil
	}
	args, _ := obj["arguments"].(map[string]any)
	if args == nil {
		args, _ = obj["parameters"].(map[string]any)
	}
	return []schema.ToolCall{{ID: schema.NewToolCallID(), Name: name, Arguments: args}}
}

func trySentinelLine(text string) []schema.ToolCall {
	m := sentinelLineRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(m[2]), &args); err != nil {
		return nil
	}
	return []schema.ToolCall{{ID: schema.NewToolCallID(), Name: m[1], Arguments: args}}
}

func tryFunctionCallPattern(text string) []schema.ToolCall {
	m := functionCallRE.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(m[2]), &args); err != nil {
		return nil
	}
	return []schema.ToolCall{{ID: schema.NewToolCallID(), Name: m[1], Arguments: args}}
}
