package statemachine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps the names used in table configs to states, preconditions
// and handlers. It is safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	states        map[string]State
	preconditions map[string]Precondition
	handlers      map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		states:        make(map[string]State),
		preconditions: make(map[string]Precondition),
		handlers:      make(map[string]Handler),
	}
}

// RegisterState makes state resolvable by its name.
func (r *Registry) RegisterState(states ...State) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range states {
		r.states[s.Name()] = s
	}

	return r
}

// RegisterPrecondition registers a precondition under name.
func (r *Registry) RegisterPrecondition(name string, p Precondition) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preconditions[name] = p

	return r
}

// RegisterHandler registers a handler under name.
func (r *Registry) RegisterHandler(name string, h Handler) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[name] = h

	return r
}

// State resolves a state name. Unregistered names resolve to a StateName.
func (r *Registry) State(name string) State { //nolint:ireturn
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.states[name]; ok {
		return s
	}

	return StateName(name)
}

// Precondition resolves a precondition name.
func (r *Registry) Precondition(name string) (Precondition, error) { //nolint:ireturn
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.preconditions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPrecondition, name, sortedKeys(r.preconditions))
	}

	return p, nil
}

// Handler resolves a handler name.
func (r *Registry) Handler(name string) (Handler, error) { //nolint:ireturn
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownHandler, name, sortedKeys(r.handlers))
	}

	return h, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
