package agent

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/logger"
	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/model"
	"github.com/loomrt/loom/pkg/schema"
	"github.com/loomrt/loom/pkg/tool"
)

// Executor runs one agent's reason→act→observe loop (§4.6). A single
// Executor is built once per Config and is safe for concurrent use
// across turns — all per-turn state lives in turnState, never on the
// Executor itself.
type Executor struct {
	Config    *Config
	Provider  model.Provider
	Tools     *tool.Registry
	Store     memory.Store
	Estimator memory.TokenEstimator
	Bus       *event.Bus
}

// NewExecutor wires the collaborators a turn needs. bus may be nil, in
// which case event.Default() is used.
func NewExecutor(cfg *Config, provider model.Provider, tools *tool.Registry, store memory.Store, estimator memory.TokenEstimator, bus *event.Bus) *Executor {
	if bus == nil {
		bus = event.Default()
	}
	if estimator == nil {
		estimator = memory.NewTiktokenEstimator()
	}
	return &Executor{Config: cfg, Provider: provider, Tools: tools, Store: store, Estimator: estimator, Bus: bus}
}

// turnState is the mutable, non-shared state of one in-flight turn.
type turnState struct {
	sessionID     string
	toolCallCount int
	usage         schema.Usage
}

// Generate runs one complete turn to completion and returns its result.
// It is a thin buffering wrapper over Run.
func (e *Executor) Generate(ctx context.Context, sessionID string, input string, opts CallOptions) (schema.AgentGenerateResult, error) {
	var result schema.AgentGenerateResult
	for step, err := range e.Run(ctx, sessionID, input, opts) {
		if err != nil {
			return result, err
		}
		result.Steps = append(result.Steps, *step)
		if step.Kind == schema.StepFinal && step.Output != nil {
			result.Response = step.Output.Content
		}
	}
	if final := result.FinalStep(); final != nil {
		if usage, ok := final.Metadata["usage"].(schema.Usage); ok {
			result.Usage = usage
		}
	}
	return result, nil
}

// Run executes the Initial→Reasoning→ToolExec→Final state machine
// (§4.6) and yields the Initial step, then one Tool step per executed
// round of tool calls, then a closing step of Kind StepFinal. Reasoning
// iterations after the first are not yielded as steps of their own.
func (e *Executor) Run(ctx context.Context, sessionID string, input string, opts CallOptions) iter.Seq2[*schema.AgentStep, error] {
	return func(yield func(*schema.AgentStep, error) bool) {
		log := logger.Named("agent." + e.Config.Name)
		ts := &turnState{sessionID: sessionID}

		e.Bus.Publish(event.New(event.KindAgentStarted, e.Config.Name, map[string]any{"session_id": sessionID}))
		defer e.Bus.Publish(event.New(event.KindAgentStopped, e.Config.Name, map[string]any{"session_id": sessionID}))

		if e.Store != nil {
			if err := e.Store.AppendMessage(sessionID, schema.NewUser(input), 0); err != nil {
				log.Warn("failed to append user message to session", "error", err)
			}
		}

		history, err := e.history(sessionID)
		if err != nil {
			e.emitError(e.Config.Name, err)
			yield(nil, err)
			return
		}

		wm, err := e.buildWorkingMemory(history)
		if err != nil {
			e.emitError(e.Config.Name, err)
			yield(nil, err)
			return
		}

		messages := assemblePrompt(e.Config, wm, []schema.Message{schema.NewUser(input)}, opts)

		initialYielded := false
		for {
			if ctx.Err() != nil {
				start := time.Now()
				step := e.finalStep(messages, "", "turn cancelled", ts)
				e.publishStepCompleted(schema.StepFinal, start)
				yield(&step, nil)
				return
			}

			reasoningStart := time.Now()
			step, respText, toolCalls, err := e.reasoningStep(ctx, messages, ts)
			if err != nil {
				e.emitError(e.Config.Name, err)
				e.publishStepCompleted(schema.StepInitial, reasoningStart)
				if !initialYielded && !yield(&step, nil) {
					return
				}
				finalStart := time.Now()
				final := e.finalStep(messages, "", fmt.Sprintf("model error: %v", err), ts)
				e.publishStepCompleted(schema.StepFinal, finalStart)
				yield(&final, nil)
				return
			}
			e.publishStepCompleted(schema.StepInitial, reasoningStart)
			if !initialYielded {
				initialYielded = true
				if !yield(&step, nil) {
					return
				}
			}

			if len(toolCalls) == 0 {
				finalStart := time.Now()
				final := schema.NewStep(schema.StepFinal, messages)
				outMsg := schema.NewAssistant(respText)
				final.Output = &outMsg
				final.Metadata = map[string]any{"usage": ts.usage}
				e.persistAssistant(sessionID, outMsg)
				e.publishStepCompleted(schema.StepFinal, finalStart)
				yield(&final, nil)
				return
			}

			if ts.toolCallCount+len(toolCalls) > e.Config.MaxToolCalls {
				finalStart := time.Now()
				final := e.finalStep(messages, "", "max_tool_calls exceeded: response truncated", ts)
				final.Metadata["truncated"] = true
				e.publishStepCompleted(schema.StepFinal, finalStart)
				yield(&final, nil)
				return
			}

			toolStart := time.Now()
			toolStep, resultMessages := e.runTools(ctx, toolCalls, ts)
			e.publishStepCompleted(schema.StepTool, toolStart)
			if !yield(&toolStep, nil) {
				return
			}

			messages = append(messages, schema.NewAssistant(respText))
			messages = append(messages, resultMessages...)
		}
	}
}

// reasoningStep performs one Initial/Reasoning iteration: call the
// model, then detect tool calls either natively or via textual parsing.
func (e *Executor) reasoningStep(ctx context.Context, messages []schema.Message, ts *turnState) (schema.AgentStep, string, []schema.ToolCall, error) {
	step := schema.NewStep(schema.StepInitial, messages)

	opts := model.Options{Temperature: e.Config.Temperature, MaxTokens: e.Config.MaxTokens}

	if e.Config.EnableFunctionCalling && e.Provider.SupportsFunctionCalling() {
		schemas := e.toolSchemas()
		result, err := e.Provider.GenerateWithFunctions(ctx, messages, schemas, "", opts)
		if err != nil {
			return step, "", nil, err
		}
		calls := make([]schema.ToolCall, len(result.FunctionCalls))
		for i, fc := range result.FunctionCalls {
			calls[i] = schema.ToolCall{ID: fc.ID, Name: fc.Name, Arguments: fc.Arguments}
		}
		step.ToolCalls = calls
		return step, result.Content, calls, nil
	}

	text, err := e.Provider.GenerateWithMessages(ctx, messages, opts)
	if err != nil {
		return step, "", nil, err
	}
	calls := parseTextualToolCalls(text)
	step.ToolCalls = calls
	return step, text, calls, nil
}

// runTools executes detected tool calls per the §4.3 concurrency policy
// and appends one Tool message per result.
func (e *Executor) runTools(ctx context.Context, calls []schema.ToolCall, ts *turnState) (schema.AgentStep, []schema.Message) {
	for _, c := range calls {
		e.Bus.Publish(event.New(event.KindToolCalled, e.Config.Name, map[string]any{"tool": c.Name, "call_id": c.ID}))
	}

	results := tool.ExecuteCalls(ctx, e.Tools, calls, tool.ExecuteOptions{
		Timeout:   e.Config.ToolTimeout,
		SessionID: ts.sessionID,
	})
	ts.toolCallCount += len(calls)

	step := schema.AgentStep{ID: schema.NewStep(schema.StepTool, nil).ID, Kind: schema.StepTool, ToolCalls: calls, ToolResults: results}

	callByID := make(map[string]schema.ToolCall, len(calls))
	for _, c := range calls {
		callByID[c.ID] = c
	}

	msgs := make([]schema.Message, 0, len(results))
	for _, r := range results {
		e.Bus.Publish(event.New(event.KindToolCompleted, e.Config.Name, map[string]any{"tool": r.Name, "call_id": r.CallID, "status": r.Status}))
		if r.Status == schema.StatusError {
			e.Bus.Publish(event.New(event.KindErrorRaised, e.Config.Name, map[string]any{
				"kind":    r.ErrorKind,
				"error":   r.ErrorMessage,
				"tool":    r.Name,
				"call_id": r.CallID,
			}))
		}
		msg := schema.NewToolMessage(r.CallID, toolResultContent(r), r.Status)
		msgs = append(msgs, msg)
		if e.Store != nil {
			rec := memory.ToolCallRecord{Call: callByID[r.CallID], Result: r, Timestamp: time.Now()}
			_ = e.Store.AppendToolCall(ts.sessionID, rec, 0)
		}
	}
	return step, msgs
}

func toolResultContent(r schema.ToolResult) string {
	if r.Status == schema.StatusError {
		return fmt.Sprintf("error: %s", r.ErrorMessage)
	}
	return fmt.Sprintf("%v", r.Result)
}

// finalStep produces a Final step explaining early termination (§4.6
// termination conditions b/c/d).
func (e *Executor) finalStep(messages []schema.Message, partial, reason string, ts *turnState) schema.AgentStep {
	content := partial
	if content == "" {
		content = reason
	}
	final := schema.NewStep(schema.StepFinal, messages)
	outMsg := schema.NewAssistant(content)
	final.Output = &outMsg
	final.Metadata = map[string]any{"usage": ts.usage, "truncated_reason": reason}
	e.persistAssistant(ts.sessionID, outMsg)
	return final
}

func (e *Executor) persistAssistant(sessionID string, msg schema.Message) {
	if e.Store == nil {
		return
	}
	logger.Named("agent").Debug("persisting assistant message", "session_id", sessionID)
	_ = e.Store.AppendMessage(sessionID, msg, 0)
}

func (e *Executor) history(sessionID string) ([]schema.Message, error) {
	if e.Store == nil {
		return nil, nil
	}
	sess, err := e.Store.GetSession(sessionID)
	if err != nil {
		return nil, nil // §4.4: absent memory is non-fatal, executor continues without it
	}
	return sess.Messages, nil
}

func (e *Executor) buildWorkingMemory(history []schema.Message) (memory.WorkingMemory, error) {
	var system *schema.Message
	if e.Config.Instructions != "" {
		sys := schema.NewSystem(e.Config.Instructions)
		system = &sys
	}
	if e.Config.Memory == nil {
		return memory.WorkingMemory{}, nil
	}
	return memory.Build(e.Estimator, system, nil, history, e.Config.Memory.MaxTokens, e.Config.Memory.Policy)
}

func (e *Executor) toolSchemas() []schema.ToolSchema {
	schemas := make([]schema.ToolSchema, 0, len(e.Config.ToolNames))
	for _, name := range e.Config.ToolNames {
		if t, ok := e.Tools.Get(name); ok {
			schemas = append(schemas, t.Schema())
		}
	}
	return schemas
}

func (e *Executor) emitError(agentName string, err error) {
	e.Bus.Publish(event.New(event.KindErrorRaised, agentName, map[string]any{
		"kind":  string(loomerr.KindOf(err)),
		"error": err.Error(),
	}))
}

// publishStepCompleted emits a StepCompleted event for one finished step
// (§4.5), carrying duration_ms as a float64 so the event metrics
// subscriber's step-duration histogram can observe it.
func (e *Executor) publishStepCompleted(kind schema.StepKind, start time.Time) {
	e.Bus.Publish(event.New(event.KindStepCompleted, e.Config.Name, map[string]any{
		"step_kind":   string(kind),
		"duration_ms": float64(time.Since(start).Milliseconds()),
	}))
}
