// Package statemachine is an embeddable, signal-driven state machine engine.
//
// A host owns the current state of each machine instance. Signals are
// dispatched against an immutable transition table: a rule is selected by
// (current state, signal), its preconditions are checked, and the instance
// moves to the rule's next state. A rule may name a handler instead of a
// plain move; the handler runs while the machine is notionally in the
// handler's own state and may emit further signals, which are processed
// recursively as part of the same chain. Only the outermost dispatch writes
// the instance, exactly once, with the state the chain finally settled on.
//
// Basic usage:
//
//	table, err := statemachine.BuildTable("door", func(b *statemachine.Builder) {
//	    b.StartsIn(Closed{})
//	    b.For(Closed{}).On(Open{}).MoveTo(Opened{})
//	    b.For(Opened{}).On(Close{}).MoveTo(Closed{})
//	})
//
//	engine := statemachine.NewEngine(table)
//	machine := statemachine.NewMachine(engine, statemachine.NewMemoryInstance(nil))
//	state, err := machine.Signal(ctx, Open{}).Await(ctx)
package statemachine

import (
	"context"
	"fmt"

	"github.com/amp-labs/liminal/errors"
	"github.com/amp-labs/liminal/future"
)

// State identifies a machine state. States are compared by Name, so any
// comparable or non-comparable type may serve as a state value.
type State interface {
	Name() string
}

// Signal is an input delivered to a machine. Rules are keyed by the signal's
// Name; the value itself carries whatever payload handlers and
// preconditions need.
type Signal interface {
	Name() string
}

// StateName is a State with no data beyond its name.
type StateName string

// Name returns the state name.
func (s StateName) Name() string { return string(s) }

// SignalName is a Signal with no payload.
type SignalName string

// Name returns the signal name.
func (s SignalName) Name() string { return string(s) }

// Instance is the host-owned state slot of one machine. The engine reads it
// once at the start of a dispatch and writes it at most once at the end.
type Instance interface {
	// CurrentState returns the state the instance is in. A nil state means
	// the instance has never been written and starts in the table's
	// initial state.
	CurrentState(ctx context.Context) (State, error)

	// SetCurrentState commits a new state.
	SetCurrentState(ctx context.Context, state State) error
}

// Precondition gates a rule. It reports every reason the signal may not be
// applied; an empty slice means the rule may proceed. The returned future
// may be pending, in which case the dispatch suspends until it completes.
type Precondition interface {
	Check(ctx context.Context, sig Signal) *future.Future[[]error]
}

// Handler runs when a handler-bearing rule is selected. It may emit further
// signals through sc.Signal, return Completed with a state of its own
// choosing, or fail.
type Handler interface {
	Invoke(ctx context.Context, sc *SignalContext, sig Signal) *Result
}

// PreconditionFunc adapts an untyped function to the Precondition interface.
type PreconditionFunc func(ctx context.Context, sig Signal) *future.Future[[]error]

// Check calls f.
func (f PreconditionFunc) Check(ctx context.Context, sig Signal) *future.Future[[]error] {
	return f(ctx, sig)
}

// Require builds a synchronous precondition for signals of type S.
// A signal of any other type is rejected with errors.ErrWrongType.
func Require[S Signal](fn func(ctx context.Context, sig S) []error) Precondition {
	return PreconditionFunc(func(ctx context.Context, sig Signal) *future.Future[[]error] {
		typed, ok := sig.(S)
		if !ok {
			return future.Ready([]error{wrongSignalType[S](sig)})
		}

		return future.Ready(fn(ctx, typed))
	})
}

// RequireAsync builds a precondition for signals of type S whose verdict
// may arrive later.
func RequireAsync[S Signal](fn func(ctx context.Context, sig S) *future.Future[[]error]) Precondition {
	return PreconditionFunc(func(ctx context.Context, sig Signal) *future.Future[[]error] {
		typed, ok := sig.(S)
		if !ok {
			return future.Ready([]error{wrongSignalType[S](sig)})
		}

		return fn(ctx, typed)
	})
}

// HandlerFunc builds a handler for signals of type S. A signal of any other
// type fails the dispatch with errors.ErrWrongType.
func HandlerFunc[S Signal](fn func(ctx context.Context, sc *SignalContext, sig S) *Result) Handler {
	return handlerFunc(func(ctx context.Context, sc *SignalContext, sig Signal) *Result {
		typed, ok := sig.(S)
		if !ok {
			return Failed(wrongSignalType[S](sig))
		}

		return fn(ctx, sc, typed)
	})
}

type handlerFunc func(ctx context.Context, sc *SignalContext, sig Signal) *Result

func (f handlerFunc) Invoke(ctx context.Context, sc *SignalContext, sig Signal) *Result {
	return f(ctx, sc, sig)
}

func wrongSignalType[S Signal](sig Signal) error {
	var want S

	return fmt.Errorf("%w: signal %q is %T, expected %T", errors.ErrWrongType, nameOf(sig), sig, want)
}

// nameOf returns the name of a state or signal, tolerating nil.
func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return ""
	}

	return v.Name()
}
