package tool

import (
	"fmt"
	"sync"

	"github.com/loomrt/loom/pkg/loomerr"
)

// Registry is a case-sensitive map of tools by name. It is the only
// source of tools the executor consults (§4.3 "Determinism"); tool
// identity is established entirely by this registry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t, rejecting a duplicate name — name uniqueness is
// enforced at build time by the agent builder (§4.3), but the
// registry itself also refuses silent overwrite.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.ID() == "" {
		return fmt.Errorf("tool must have a non-empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.ID()]; exists {
		return fmt.Errorf("tool %q already registered", t.ID())
	}
	r.tools[t.ID()] = t
	return nil
}

// Get looks up a tool by exact, case-sensitive name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools in no particular order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	return out
}

// NotFoundResult returns the NotFound-kind error for a tool name the
// registry does not hold. ExecuteCalls does not use it: it builds its
// own NotFound ToolResult, so lookup failure never aborts the turn
// (§4.3/§4.6).
func NotFoundResult(callID, name string) error {
	return loomerr.New(loomerr.NotFound, "tool.Registry.Get", fmt.Errorf("tool %q not found", name))
}
