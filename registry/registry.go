// Package registry holds the named handlers the router can select.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/hupe1980/tripmesh/core"
)

// Registry is a thread-safe map of handler name to core.Handler.
//
// Unlike a plain map it refuses to overwrite: a second registration under
// the same name fails with *core.DuplicateRegistrationError and leaves the
// first handler in place. The registry never inspects handlers beyond the
// core.Handler interface.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]core.Handler
	order    []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]core.Handler)}
}

// Register adds h under name.
func (r *Registry) Register(name string, h core.Handler) error {
	if name == "" {
		return errors.New("handler name must not be empty")
	}
	if h == nil {
		return errors.New("handler must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return &core.DuplicateRegistrationError{Name: name}
	}

	r.handlers[name] = h
	r.order = append(r.order, name)

	return nil
}

// MustRegister is Register that panics on error. Intended for static wiring at startup.
func (r *Registry) MustRegister(name string, h core.Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (core.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, &core.HandlerNotFoundError{Name: name}
	}

	return h, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Sorted returns registered names in lexical order.
func (r *Registry) Sorted() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
