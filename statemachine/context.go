package statemachine

import (
	"context"
	"runtime/debug"

	"github.com/amp-labs/liminal/errors"
)

// SignalContext is handed to a handler. It is the handler's view of the
// chain it runs in: emitting a signal through it continues the same chain
// from the chain's current state, without touching the instance.
type SignalContext struct {
	chain  *chain
	state  State
	signal Signal
	depth  int
}

// Signal processes sig as a nested step of the current chain and returns
// its result. The instance is not written; the outermost dispatch commits
// whatever state the chain finally settles on.
func (sc *SignalContext) Signal(ctx context.Context, sig Signal) *Result {
	return sc.chain.step(ctx, sig, sc.depth+1)
}

// State returns the state the handler was entered for.
func (sc *SignalContext) State() State { //nolint:ireturn
	return sc.state
}

// Current returns the chain's current (uncommitted) state. It differs from
// State once the handler has emitted signals.
func (sc *SignalContext) Current() State { //nolint:ireturn
	return sc.chain.state
}

// Trigger returns the signal that selected the handler's rule.
func (sc *SignalContext) Trigger() Signal { //nolint:ireturn
	return sc.signal
}

// Instance returns the instance being processed. Handlers should not write
// it; the engine commits the final state.
func (sc *SignalContext) Instance() Instance { //nolint:ireturn
	return sc.chain.inst
}

// Depth returns how many handler emissions deep this handler runs; the
// handler of the outermost signal has depth 0.
func (sc *SignalContext) Depth() int {
	return sc.depth
}

// ChainID identifies the outermost dispatch this handler belongs to.
func (sc *SignalContext) ChainID() string {
	return sc.chain.id
}

// Machine returns the name of the table being executed.
func (sc *SignalContext) Machine() string {
	return sc.chain.engine.table.Name()
}

// Go runs fn on the engine's worker pool and returns a pending result that
// completes with fn's result. Handlers use it to suspend while waiting on
// I/O without holding the caller's goroutine.
func (sc *SignalContext) Go(ctx context.Context, fn func(ctx context.Context) *Result) *Result {
	out, promise := pendingResult()

	sc.chain.engine.schedule(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Failure(&HandlerError{
					State:  nameOf(sc.state),
					Signal: nameOf(sc.signal),
					Err:    errors.FromPanic(r, debug.Stack()),
				})
			}
		}()

		res := fn(ctx)
		if res == nil {
			promise.Failure(&HandlerError{State: nameOf(sc.state), Signal: nameOf(sc.signal), Err: ErrNilResult})

			return
		}

		res.onResolved(promise.Complete)
	})

	return out
}
