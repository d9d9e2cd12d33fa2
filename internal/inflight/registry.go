// Package inflight tracks request generations per key so that a response
// superseded by a newer request for the same key is dropped.
package inflight

import "sync"

// Registry hands out generations per key. The zero value is ready to use.
type Registry struct {
	mu   sync.Mutex
	gens map[string]uint64
}

// New creates an empty registry
func New() *Registry {
	return &Registry{}
}

// Begin starts a new request for key and returns its generation
func (r *Registry) Begin(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gens == nil {
		r.gens = make(map[string]uint64)
	}
	r.gens[key]++
	return r.gens[key]
}

// Latest returns the generation of the most recently started request for key
func (r *Registry) Latest(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[key]
}

// Commit runs apply only if gen is still the latest generation begun for key.
// apply runs while the registry is locked and must not call back into it.
func (r *Registry) Commit(key string, gen uint64, apply func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gens[key] != gen {
		return false
	}
	if apply != nil {
		apply()
	}
	return true
}
