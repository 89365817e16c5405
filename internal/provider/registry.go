package provider

import (
	"slices"
	"sync"
)

// Registry maps backend kinds to their providers. It is safe for concurrent
// lookup; registration normally happens once before tests run.
type Registry struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[Kind]Provider),
	}
}

// Register adds p under kind, replacing any previous registration.
func (r *Registry) Register(kind Kind, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[kind] = p
}

// Lookup returns the provider registered for kind, or an *UnknownBackendError.
func (r *Registry) Lookup(kind Kind) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[kind]
	if !ok {
		return nil, &UnknownBackendError{Kind: kind}
	}
	return p, nil
}

// LookupName parses name and looks the kind up.
func (r *Registry) LookupName(name string) (Provider, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return r.Lookup(kind)
}

// Kinds returns the registered kinds in ascending order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
