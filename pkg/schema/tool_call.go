package schema

import "github.com/google/uuid"

// ToolCall is a model's request to invoke a named tool. ID is unique
// within one agent turn.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewToolCallID generates a fresh, turn-unique tool call id.
func NewToolCallID() string {
	return "call_" + uuid.NewString()
}

// ResultStatus is the outcome of one tool invocation.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// ToolResult is the outcome of exactly one ToolCall the executor
// decided to run.
type ToolResult struct {
	CallID string       `json:"call_id"`
	Name   string       `json:"name"`
	Result any          `json:"result"`
	Status ResultStatus `json:"status"`
	// ErrorKind classifies failures per §7 (e.g. "timeout", "not_found");
	// empty on success.
	ErrorKind string `json:"error_kind,omitempty"`
	// ErrorMessage is a human-readable reason, set when Status is Error.
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewSuccessResult builds a successful ToolResult.
func NewSuccessResult(callID, name string, result any) ToolResult {
	return ToolResult{CallID: callID, Name: name, Result: result, Status: StatusSuccess}
}

// NewErrorResult builds a failed ToolResult with a classified kind.
func NewErrorResult(callID, name, kind, message string) ToolResult {
	return ToolResult{
		CallID:       callID,
		Name:         name,
		Status:       StatusError,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}
