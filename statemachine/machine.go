package statemachine

import (
	"context"
	"sync"

	"github.com/amp-labs/liminal/future"
	"github.com/amp-labs/liminal/logger"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Machine binds an engine to one instance and serializes the signals sent
// to it: each signal is processed only after every earlier one has
// completed, in arrival order, and sees the state the previous one committed.
//
// A signal that arrives while the instance is idle is processed on the
// caller's goroutine and may complete synchronously. One that arrives while
// another is in flight returns a pending result.
type Machine struct {
	id     string
	engine *Engine
	inst   Instance
	mu     sync.Mutex
	tail   *future.Future[struct{}]
	queued *atomic.Int64
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithMachineID sets the identifier attached to logs. The default is a random UUID.
func WithMachineID(id string) MachineOption {
	return func(m *Machine) {
		if id != "" {
			m.id = id
		}
	}
}

// NewMachine creates a machine for inst.
func NewMachine(engine *Engine, inst Instance, opts ...MachineOption) *Machine {
	m := &Machine{
		id:     uuid.NewString(),
		engine: engine,
		inst:   inst,
		queued: atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ID returns the machine identifier.
func (m *Machine) ID() string {
	return m.id
}

// Engine returns the machine's engine.
func (m *Machine) Engine() *Engine {
	return m.engine
}

// Instance returns the machine's instance.
func (m *Machine) Instance() Instance { //nolint:ireturn
	return m.inst
}

// Queued returns the number of signals waiting behind the one in flight.
func (m *Machine) Queued() int64 {
	return m.queued.Load()
}

// State returns the instance's committed state, or the table's initial
// state if it has none yet.
func (m *Machine) State(ctx context.Context) (State, error) { //nolint:ireturn
	s, err := m.inst.CurrentState(ctx)
	if err != nil {
		return nil, &StateAccessError{Op: "read", Err: err}
	}

	if s == nil {
		s = m.engine.table.Initial()
	}

	return s, nil
}

// Signal sends sig to the instance. If ctx is cancelled while the signal is
// still waiting for its turn, the result is Cancelled and the signal is
// never processed; signals queued behind it keep their order.
func (m *Machine) Signal(ctx context.Context, sig Signal) *Result {
	turn, release := future.New[struct{}]()

	m.mu.Lock()
	prev := m.tail
	m.tail = turn
	m.mu.Unlock()

	ctx = logger.With(ctx, "machine_id", m.id)

	run := func() *Result {
		res := m.engine.Process(ctx, m.inst, sig)
		res.onResolved(func(State, error) {
			release.Success(struct{}{})
		})

		return res
	}

	if prev == nil || prev.IsDone() {
		return run()
	}

	return m.enqueue(ctx, prev, release, run)
}

// enqueue waits for prev before running. The started flag decides the
// race between the predecessor finishing and ctx being cancelled.
func (m *Machine) enqueue(
	ctx context.Context,
	prev *future.Future[struct{}],
	release *future.Promise[struct{}],
	run func() *Result,
) *Result {
	machine := sanitizeLabel(m.engine.table.Name())
	out, promise := pendingResult()
	started := atomic.NewBool(false)

	m.queued.Inc()
	queuedSignals.WithLabelValues(machine).Inc()

	stop := context.AfterFunc(ctx, func() {
		if started.CompareAndSwap(false, true) {
			promise.Failure(cancelledError(ctx.Err()))
		}
	})

	prev.OnResult(func(struct{}, error) {
		m.queued.Dec()
		queuedSignals.WithLabelValues(machine).Dec()
		stop()

		if !started.CompareAndSwap(false, true) {
			// Cancelled while waiting: pass the turn on.
			release.Success(struct{}{})

			return
		}

		m.engine.schedule(ctx, func() {
			run().onResolved(promise.Complete)
		})
	})

	return out
}

// SignalSync sends sig and returns its outcome without blocking. Hosts that
// only support synchronous processing use it: if processing suspends, the
// call fails with ErrPending while the signal continues in the background.
func (m *Machine) SignalSync(ctx context.Context, sig Signal) (State, error) { //nolint:ireturn
	return m.Signal(ctx, sig).Now()
}

// Idle blocks until every signal sent so far has completed, or ctx is done.
func (m *Machine) Idle(ctx context.Context) error {
	m.mu.Lock()
	tail := m.tail
	m.mu.Unlock()

	if tail == nil {
		return nil
	}

	_, err := tail.AwaitContext(ctx)

	return err
}
