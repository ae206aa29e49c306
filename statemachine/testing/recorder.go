package testing

import (
	"context"
	"sync"

	"github.com/amp-labs/liminal/statemachine"
)

// RecordingInstance is an in-memory statemachine.Instance that records every
// read and write. It can also be told to fail reads or writes.
type RecordingInstance struct {
	mu       sync.Mutex
	state    statemachine.State
	reads    int
	writes   []statemachine.State
	readErr  error
	writeErr error
}

// NewRecordingInstance creates a recorder starting in initial (nil means
// the table's initial state).
func NewRecordingInstance(initial statemachine.State) *RecordingInstance {
	return &RecordingInstance{state: initial}
}

// FailReads makes every subsequent CurrentState call return err.
func (r *RecordingInstance) FailReads(err error) *RecordingInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.readErr = err

	return r
}

// FailWrites makes every subsequent SetCurrentState call return err
// without storing the state.
func (r *RecordingInstance) FailWrites(err error) *RecordingInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writeErr = err

	return r
}

// CurrentState implements statemachine.Instance.
func (r *RecordingInstance) CurrentState(context.Context) (statemachine.State, error) { //nolint:ireturn
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reads++

	if r.readErr != nil {
		return nil, r.readErr
	}

	return r.state, nil
}

// SetCurrentState implements statemachine.Instance.
func (r *RecordingInstance) SetCurrentState(_ context.Context, state statemachine.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writeErr != nil {
		return r.writeErr
	}

	r.state = state
	r.writes = append(r.writes, state)

	return nil
}

// State returns the stored state.
func (r *RecordingInstance) State() statemachine.State { //nolint:ireturn
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Reads returns how many times the state was read.
func (r *RecordingInstance) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reads
}

// Writes returns the names of every state written, in order.
func (r *RecordingInstance) Writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.writes))
	for i, s := range r.writes {
		names[i] = s.Name()
	}

	return names
}

var _ statemachine.Instance = (*RecordingInstance)(nil)
