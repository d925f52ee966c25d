// Package chain implements the fluent chain-call API of §4.10: a
// conversation wrapped in a value that is never mutated in place.
// Every method that advances the conversation — System, SetVariable,
// Ask — returns a new Chain, leaving the receiver untouched, so a
// caller can branch a conversation from any earlier point simply by
// holding on to the Chain value it came from.
package chain

import (
	"context"

	"github.com/loomrt/loom/pkg/agent"
	"github.com/loomrt/loom/pkg/schema"
)

// StepSummary is what a completed Ask leaves in a Chain's history: the
// round's input/output text and how many tool calls it made. It is a
// summary, not a replay log — loading a saved Chain restores this
// summary trail without re-invoking any tool.
type StepSummary struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	ToolCalls int    `json:"tool_calls"`
}

// Chain is an immutable, append-only conversation built on top of one
// agent.Executor. Ask performs exactly one C6 turn (Executor.Generate)
// per call; System and SetVariable only adjust the Chain's own state,
// never the Executor's shared Config.
type Chain struct {
	executor  *agent.Executor
	sessionID string
	system    string
	variables map[string]any
	messages  []schema.Message
	steps     []StepSummary
}

// New starts an empty Chain bound to executor and a session id. The
// session id scopes the executor's own memory.Store history, if any;
// callers that want a chain with no backing memory store should pass
// an Executor built with a nil Store.
func New(executor *agent.Executor, sessionID string) Chain {
	return Chain{executor: executor, sessionID: sessionID}
}

// System returns a copy of c whose subsequent Ask calls use text as
// the system instructions, overriding (for this chain only) whatever
// agent.Config.Instructions the underlying executor was built with.
func (c Chain) System(text string) Chain {
	c.system = text
	return c
}

// SetVariable returns a copy of c with key bound to value in its
// variable store. Variables are opaque to the executor; they exist
// purely for the caller's own bookkeeping across Ask calls (e.g.
// remembered user preferences) and are persisted by SaveContext.
func (c Chain) SetVariable(key string, value any) Chain {
	next := make(map[string]any, len(c.variables)+1)
	for k, v := range c.variables {
		next[k] = v
	}
	next[key] = value
	c.variables = next
	return c
}

// GetVariable looks up a variable set with SetVariable.
func (c Chain) GetVariable(key string) (any, bool) {
	v, ok := c.variables[key]
	return v, ok
}

// Messages returns a copy of the conversation's message history.
func (c Chain) Messages() []schema.Message {
	return append([]schema.Message(nil), c.messages...)
}

// Steps returns a copy of the chain's completed-step summaries.
func (c Chain) Steps() []StepSummary {
	return append([]StepSummary(nil), c.steps...)
}

// Response is what Ask/ThenAsk return: the turn's output text plus
// the Chain advanced past that turn, so the caller can either read
// Content directly or keep chaining via ThenAsk/Chain().
type Response struct {
	Content string
	chain   Chain
}

// Chain returns the Chain as it stood immediately after this Response
// was produced.
func (r Response) Chain() Chain { return r.chain }

// ThenAsk is sugar for r.Chain().Ask(ctx, input) — it continues the
// conversation the response belongs to.
func (r Response) ThenAsk(ctx context.Context, input string) (Response, error) {
	return r.chain.Ask(ctx, input)
}

// Ask performs exactly one C6 agent turn with input, using c's System
// override (if any) and its session id, and returns a Response
// wrapping the turn's text plus the advanced Chain.
func (c Chain) Ask(ctx context.Context, input string) (Response, error) {
	exec := c.executorForCall()

	result, err := exec.Generate(ctx, c.sessionID, input, agent.CallOptions{})
	if err != nil {
		return Response{}, err
	}

	toolCalls := 0
	for _, s := range result.Steps {
		if s.Kind == schema.StepTool {
			toolCalls += len(s.ToolCalls)
		}
	}

	next := c
	next.messages = append(append([]schema.Message(nil), c.messages...),
		schema.NewUser(input), schema.NewAssistant(result.Response))
	next.steps = append(append([]StepSummary(nil), c.steps...),
		StepSummary{Input: input, Output: result.Response, ToolCalls: toolCalls})

	return Response{Content: result.Response, chain: next}, nil
}

// executorForCall returns the Chain's executor, shallow-copied with
// its Config's Instructions overridden by c.system when set. The
// underlying agent.Config is documented as never mutated by the
// executor, so copying the struct and pointing at a copied Config is
// safe and leaves the shared Executor/Config untouched.
func (c Chain) executorForCall() *agent.Executor {
	if c.system == "" {
		return c.executor
	}
	cfgCopy := *c.executor.Config
	cfgCopy.Instructions = c.system
	execCopy := *c.executor
	execCopy.Config = &cfgCopy
	return &execCopy
}
