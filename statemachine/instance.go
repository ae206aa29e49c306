package statemachine

import (
	"context"
	"sync"
)

// MemoryInstance is an Instance backed by a mutex-guarded field.
type MemoryInstance struct {
	mu    sync.RWMutex
	state State
}

// NewMemoryInstance creates an in-memory instance. A nil initial state lets
// the engine start the instance in the table's initial state.
func NewMemoryInstance(initial State) *MemoryInstance {
	return &MemoryInstance{state: initial}
}

// CurrentState returns the stored state.
func (m *MemoryInstance) CurrentState(context.Context) (State, error) { //nolint:ireturn
	return m.Get(), nil
}

// SetCurrentState stores state.
func (m *MemoryInstance) SetCurrentState(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state

	return nil
}

// Get returns the stored state without a context.
func (m *MemoryInstance) Get() State { //nolint:ireturn
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// InstanceFuncs adapts a pair of host functions to the Instance interface,
// for hosts that keep the state in a field of their own.
type InstanceFuncs struct {
	Get func(ctx context.Context) (State, error)
	Set func(ctx context.Context, state State) error
}

// CurrentState calls Get.
func (f InstanceFuncs) CurrentState(ctx context.Context) (State, error) { //nolint:ireturn
	return f.Get(ctx)
}

// SetCurrentState calls Set.
func (f InstanceFuncs) SetCurrentState(ctx context.Context, state State) error {
	return f.Set(ctx, state)
}

var (
	_ Instance = (*MemoryInstance)(nil)
	_ Instance = InstanceFuncs{}
)
