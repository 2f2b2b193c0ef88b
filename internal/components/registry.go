package components

import (
	"context"
	"sort"
	"sync"
)

// Component is an opaque handle to a resolved UI unit. The engine never
// inspects it; it only moves it between the cache, the stack and the
// change observer.
type Component interface{}

// Resolver resolves a logical component name to a renderable component.
// Resolution may be slow (dynamic import, code splitting); implementations
// must honor ctx cancellation.
type Resolver interface {
	Resolve(ctx context.Context, name string) (Component, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, name string) (Component, error)

func (f ResolverFunc) Resolve(ctx context.Context, name string) (Component, error) {
	return f(ctx, name)
}

// Registry is a name-keyed component table. The demo server and tests
// register factories; Resolve instantiates on demand.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]func() Component
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]func() Component)}
}

// Register adds or replaces the factory for a logical name.
func (r *Registry) Register(name string, factory func() Component) {
	r.mu.Lock()
	r.entries[name] = factory
	r.mu.Unlock()
}

// Resolve implements Resolver.
func (r *Registry) Resolve(ctx context.Context, name string) (Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	factory, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrComponentNotFound(name)
	}
	return factory(), nil
}

// Names returns the registered logical names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
