// Package preview holds transient, revocable preview resources. A handle is
// acquired when a screen renders and released when that screen goes away.
package preview

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned for handles that were never issued, were released,
// or belong to another scope.
var ErrNotFound = errors.New("preview: not found")

// Resource is the content behind a handle.
type Resource struct {
	ContentType string
	Data        []byte
}

type entry struct {
	scope string
	res   Resource
}

// Registry maps handles to resources, grouped by owner scope.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	scopes  map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
		scopes:  make(map[string]map[string]struct{}),
	}
}

// Acquire stores res under scope and returns a new handle.
func (r *Registry) Acquire(scope string, res Resource) string {
	handle := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[handle] = entry{scope: scope, res: res}
	set, ok := r.scopes[scope]
	if !ok {
		set = make(map[string]struct{})
		r.scopes[scope] = set
	}
	set[handle] = struct{}{}
	return handle
}

// Lookup returns the resource for handle if it is owned by scope.
func (r *Registry) Lookup(scope, handle string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[handle]
	if !ok || e.scope != scope {
		return Resource{}, ErrNotFound
	}
	return e.res, nil
}

// ReleaseScope drops every handle owned by scope and reports how many were released.
func (r *Registry) ReleaseScope(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.scopes[scope]
	for handle := range set {
		delete(r.entries, handle)
	}
	delete(r.scopes, scope)
	return len(set)
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
