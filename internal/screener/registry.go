package screener

import (
	"errors"
	"sync"
)

// ErrFilterNotFound is returned when a filter id cannot be resolved.
var ErrFilterNotFound = errors.New("filter not found")

// Registry resolves filter ids to validated filter definitions.
// Clients register ad-hoc filters over the realtime channel before
// subscribing to them; REST collaborators may seed it at startup.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]*Filter
}

// NewRegistry creates an empty filter registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]*Filter)}
}

// Register validates and stores a filter, replacing any previous
// definition with the same id. Invalid filters are rejected with a
// *ValidationError and leave any prior definition untouched.
func (r *Registry) Register(f *Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.filters[f.ID] = f
	r.mu.Unlock()
	return nil
}

// Resolve returns the filter registered under id.
func (r *Registry) Resolve(id string) (*Filter, error) {
	r.mu.RLock()
	f, ok := r.filters[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrFilterNotFound
	}
	return f, nil
}

// Remove deletes a filter definition.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.filters, id)
	r.mu.Unlock()
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filters)
}
