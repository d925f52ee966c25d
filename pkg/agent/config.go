// Package agent implements the reason→act→observe executor loop (§4.6):
// prompt assembly, tool-call detection, tool execution policy, and the
// Initial→Reasoning→ToolExec→Final state machine, in both buffered and
// streaming modes.
package agent

import (
	"time"

	"github.com/loomrt/loom/pkg/memory"
)

// Config is the fully-resolved, immutable description of an agent,
// produced by pkg/builder's validator. The executor never mutates it.
type Config struct {
	Name         string
	Instructions string
	ModelRef     string

	// ToolNames are looked up in the shared tool.Registry at call time;
	// the executor never fabricates a tool from a bare string (§4.3).
	ToolNames []string

	Memory *MemoryConfig

	MaxToolCalls          int
	ToolTimeout           time.Duration
	EnableFunctionCalling bool

	Temperature *float64
	MaxTokens   *int

	Metadata map[string]any
}

// MemoryConfig controls how working memory is built for this agent's
// turns (§3 MemoryConfig, §4.4).
type MemoryConfig struct {
	MaxTokens int
	Policy    memory.RetentionPolicy
}
