package model

import (
	"fmt"
	"sync"

	"github.com/loomrt/loom/pkg/loomerr"
)

// Registry holds named Provider instances so AgentConfig.model_ref can
// resolve a string to a concrete provider (§4.7 "model identifier
// recognized by the resolver").
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under name.
func (r *Registry) Register(name string, p Provider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
	return nil
}

// Resolve looks up a provider by name.
func (r *Registry) Resolve(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, loomerr.New(loomerr.NotFound, "model.Registry.Resolve", fmt.Errorf("unknown model ref %q", name))
	}
	return p, nil
}

// Names lists registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}
