// Package registry maps symbolic names to callables so chains can be
// described in configuration and rebuilt after a restart.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/promptloom/promptloom/pkg/chain"
)

// Registry manages named callables.
type Registry struct {
	mu        sync.RWMutex
	callables map[string]chain.Callable
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		callables: make(map[string]chain.Callable),
	}
}

// Register adds a callable to the registry.
// If a callable with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn chain.Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callables[name] = fn
}

// Resolve looks up a callable by name.
func (r *Registry) Resolve(name string) (chain.Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.callables[name]
	return fn, ok
}

// Execute looks up a callable by name and invokes it.
// Returns an error if the callable is not found.
func (r *Registry) Execute(ctx context.Context, name string, args []any, kwargs map[string]any) (any, error) {
	fn, ok := r.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("callable not found: %s", name)
	}
	return fn(ctx, args, kwargs)
}

// Names returns the registered callable names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callables))
	for name := range r.callables {
		names = append(names, name)
	}
	return names
}
