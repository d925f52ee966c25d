package tool

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/schema"
)

// ExecuteOptions configures one batch of tool calls within a single
// executor step.
type ExecuteOptions struct {
	// Timeout is the per-call timeout; falls back to DefaultTimeout.
	Timeout time.Duration
	// SessionID/UserID are threaded into each call's Context.
	SessionID string
	UserID    string
	Logger    hclog.Logger
}

// ExecuteCalls runs calls against registry according to the §4.3
// concurrency policy: calls execute in parallel only when every
// matched tool declares itself SideEffectFree; otherwise they execute
// in declaration order. Results are always returned in the same order
// as calls, correlated to their call by CallID — this function never
// panics and never returns an error for an individual tool failure,
// matching "never raises out of the executor".
func ExecuteCalls(ctx context.Context, registry *Registry, calls []schema.ToolCall, opts ExecuteOptions) []schema.ToolResult {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	allSideEffectFree := true
	matched := make([]Tool, len(calls))
	for i, call := range calls {
		t, ok := registry.Get(call.Name)
		if !ok {
			allSideEffectFree = false // missing tools don't affect policy, but keep simple/serial for safety
			continue
		}
		matched[i] = t
		if !t.SideEffectFree() {
			allSideEffectFree = false
		}
	}

	results := make([]schema.ToolResult, len(calls))
	if allSideEffectFree && len(calls) > 1 {
		var wg sync.WaitGroup
		for i := range calls {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = executeOne(ctx, matched[i], calls[i], opts)
			}(i)
		}
		wg.Wait()
		return results
	}

	for i := range calls {
		results[i] = executeOne(ctx, matched[i], calls[i], opts)
	}
	return results
}

func executeOne(ctx context.Context, t Tool, call schema.ToolCall, opts ExecuteOptions) schema.ToolResult {
	if t == nil {
		return schema.NewErrorResult(call.ID, call.Name, string(loomerr.NotFound), "tool not found")
	}

	if err := t.Schema().ValidateArguments(call.Arguments); err != nil {
		return schema.NewErrorResult(call.ID, call.Name, string(loomerr.Validation), err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	toolCtx := Context{
		Context:   callCtx,
		SessionID: opts.SessionID,
		UserID:    opts.UserID,
		Logger:    opts.Logger.Named(call.Name),
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: loomerr.New(loomerr.Internal, "tool.Execute", errorFromPanic(r))}
			}
		}()
		res, err := t.Execute(toolCtx, call.Arguments)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return schema.NewErrorResult(call.ID, call.Name, string(loomerr.KindOf(o.err)), o.err.Error())
		}
		return schema.NewSuccessResult(call.ID, call.Name, o.result)
	case <-callCtx.Done():
		return schema.NewErrorResult(call.ID, call.Name, string(loomerr.Timeout), "tool call timed out")
	}
}

func errorFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{r}
}

type panicError struct{ v any }

func (p *panicError) Error() string { return "tool panicked: " + formatAny(p.v) }

func formatAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if stringer, ok := v.(interface{ String() string }); ok {
		return stringer.String()
	}
	return "unknown panic value"
}
