// Package tool defines the tool registry and execution policy (§4.3).
// A Tool is a named, schema-typed callable an agent may invoke mid-turn;
// the Registry is the single source of truth the executor consults —
// it never fabricates a tool from a bare string.
package tool

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/loomrt/loom/pkg/schema"
)

// Context carries the per-call execution environment a Tool receives,
// per §4.3/§6: session id, user id, a cancellation signal (via the
// embedded context.Context), and a logger handle.
type Context struct {
	context.Context
	SessionID string
	UserID    string
	Logger    hclog.Logger
}

// WithContext returns a copy of c bound to ctx, leaving the
// session/user fields and logger untouched.
func (c Context) WithContext(ctx context.Context) Context {
	c.Context = ctx
	return c
}

// Tool is the base callable contract. Implementations must be
// goroutine-safe and reentrant: a Tool instance is shared immutably
// across turns and may be invoked concurrently by the executor's
// parallel tool-call path.
type Tool interface {
	ID() string
	Description() string
	Schema() schema.ToolSchema
	Execute(ctx Context, arguments map[string]any) (any, error)

	// SideEffectFree declares whether this tool is safe to run
	// concurrently with other tools in the same step (§4.3). Tools
	// that mutate shared state outside their own return value must
	// report false.
	SideEffectFree() bool
}

// Func adapts a plain Go function into a Tool, mirroring the teacher's
// functiontool constructor pattern.
type Func struct {
	name        string
	description string
	schema      schema.ToolSchema
	sideEffect  bool
	fn          func(ctx Context, arguments map[string]any) (any, error)
}

// NewFunc builds a Tool from a name, description, schema, and handler.
// sideEffectFree should be true only when fn has no observable effect
// beyond its return value.
func NewFunc(name, description string, sch schema.ToolSchema, sideEffectFree bool, fn func(ctx Context, arguments map[string]any) (any, error)) *Func {
	return &Func{name: name, description: description, schema: sch, sideEffect: sideEffectFree, fn: fn}
}

func (f *Func) ID() string                    { return f.name }
func (f *Func) Description() string           { return f.description }
func (f *Func) Schema() schema.ToolSchema      { return f.schema }
func (f *Func) SideEffectFree() bool           { return f.sideEffect }
func (f *Func) Execute(ctx Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}

// DefaultTimeout is the smart default applied when neither AgentConfig
// nor a per-call override specifies one.
const DefaultTimeout = 30 * time.Second
