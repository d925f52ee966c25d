package schema

import "github.com/google/uuid"

// StepKind distinguishes the three kinds of AgentStep the executor can
// append, per §3.
type StepKind string

const (
	StepInitial StepKind = "initial"
	StepTool    StepKind = "tool"
	StepFinal   StepKind = "final"
)

// AgentStep is one iteration of the executor loop. Steps are appended
// monotonically to a turn's step list; the terminal step has Kind
// StepFinal and a non-nil Output.
type AgentStep struct {
	ID          string         `json:"id"`
	Kind        StepKind       `json:"kind"`
	Input       []Message      `json:"input"`
	Output      *Message       `json:"output,omitempty"`
	ToolCalls   []ToolCall     `json:"tool_calls,omitempty"`
	ToolResults []ToolResult   `json:"tool_results,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewStep constructs an AgentStep with a fresh id.
func NewStep(kind StepKind, input []Message) AgentStep {
	return AgentStep{ID: uuid.NewString(), Kind: kind, Input: input}
}

// Usage is the cumulative token accounting for a turn.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates u2 into u and returns the sum.
func (u Usage) Add(u2 Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + u2.PromptTokens,
		CompletionTokens: u.CompletionTokens + u2.CompletionTokens,
		TotalTokens:      u.TotalTokens + u2.TotalTokens,
	}
}

// AgentGenerateResult is the outcome of one agent turn: the final
// response text, the full step trace, token usage, and free-form
// metadata (e.g. truncation reasons).
type AgentGenerateResult struct {
	Response string         `json:"response"`
	Steps    []AgentStep    `json:"steps"`
	Usage    Usage          `json:"usage"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FinalStep returns the terminal step, or nil if Steps is empty or
// malformed (callers should treat a nil return as an invariant
// violation — P2 guarantees it never happens for a well-formed
// result).
func (r AgentGenerateResult) FinalStep() *AgentStep {
	if len(r.Steps) == 0 {
		return nil
	}
	last := r.Steps[len(r.Steps)-1]
	if last.Kind != StepFinal {
		return nil
	}
	return &last
}
