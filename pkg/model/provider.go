// Package model defines the abstract contract for language model
// providers (§4.2, §6). Concrete hosted providers are collaborators,
// not core: this package specifies the interface plus two adapters
// (Anthropic, OpenAI-compatible) that exercise it.
package model

import (
	"context"
	"iter"

	"github.com/loomrt/loom/pkg/schema"
)

// Options configures a single generation call.
type Options struct {
	Temperature      *float64
	MaxTokens        *int
	Stop             []string
	ModelOverride    string
	Extensions       map[string]any
	// Summarization marks a call as an internal working-memory
	// summarization call so metrics/events can exclude it from
	// max_tool_calls accounting (§9 design note).
	Summarization bool
}

// FunctionCall is one function-calling invocation a provider's native
// structured output reported.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// FunctionResult is the outcome of a generate-with-functions call.
type FunctionResult struct {
	Content       string
	FunctionCalls []FunctionCall
	FinishReason  string
}

// Provider is the abstract contract every model backend implements.
// Implementations are required to be safe for concurrent use: a
// provider instance is shared immutably across turns.
type Provider interface {
	// Generate produces a completion from a single prompt string.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)

	// GenerateWithMessages produces a completion from a full message
	// history.
	GenerateWithMessages(ctx context.Context, messages []schema.Message, opts Options) (string, error)

	// GenerateStream yields completion chunks lazily, in the model's
	// production order. The sequence must stop promptly when ctx is
	// cancelled and must not deadlock on early loop exit.
	GenerateStream(ctx context.Context, prompt string, opts Options) iter.Seq2[string, error]

	// GenerateWithFunctions advertises the given tool schemas as
	// callable functions and returns either text or structured function
	// calls.
	GenerateWithFunctions(ctx context.Context, messages []schema.Message, functions []schema.ToolSchema, toolChoice string, opts Options) (FunctionResult, error)

	// Embed returns a single embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// SupportsFunctionCalling reports whether this provider has a
	// native structured function-calling path; the executor uses this
	// to choose between native calling and textual parsing (§4.6).
	SupportsFunctionCalling() bool

	// ModelID returns the concrete model identifier this provider is
	// configured for (for telemetry and logging).
	ModelID() string
}
