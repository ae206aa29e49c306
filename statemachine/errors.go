package statemachine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Configuration errors, reported by Builder.Build and Config.Build.
var (
	// ErrDuplicateRule indicates two rules share the same (state, signal) key.
	ErrDuplicateRule = errors.New("duplicate rule")
	// ErrNoInitialState indicates the table never declared a start state.
	ErrNoInitialState = errors.New("no initial state")
	// ErrMissingNextState indicates a rule without a target state, or a
	// handler rule without a handler.
	ErrMissingNextState = errors.New("rule has no next state")
	// ErrInvalidRule indicates a rule without a source state or signal.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrDanglingNextState indicates a rule targets a state that has no rules
	// of its own and was not declared terminal.
	ErrDanglingNextState = errors.New("dangling next state")
	// ErrUnknownPrecondition indicates a config names an unregistered precondition.
	ErrUnknownPrecondition = errors.New("unknown precondition")
	// ErrUnknownHandler indicates a config names an unregistered handler.
	ErrUnknownHandler = errors.New("unknown handler")
	// ErrInvalidConfig indicates a structurally invalid table config.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Dispatch errors.
var (
	// ErrUnhandledSignal indicates no rule matches (state, signal).
	ErrUnhandledSignal = errors.New("unhandled signal")
	// ErrPreconditionFailed indicates at least one precondition rejected the signal.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrHandlerFailed indicates a handler panicked or misbehaved.
	ErrHandlerFailed = errors.New("handler failed")
	// ErrNilResult indicates a handler returned a nil *Result.
	ErrNilResult = errors.New("handler returned nil result")
	// ErrChainTooDeep indicates nested signal emission exceeded the depth limit.
	ErrChainTooDeep = errors.New("signal chain too deep")
	// ErrStateAccess indicates reading or writing the instance state failed.
	ErrStateAccess = errors.New("state access failed")
	// ErrCancelled indicates the dispatch was cancelled before it committed.
	ErrCancelled = errors.New("signal processing cancelled")
	// ErrPending indicates a synchronous caller met a result that has not
	// completed yet.
	ErrPending = errors.New("signal processing suspended; result is still pending")
	// ErrUnknownFailure is the cause of a Failed result built without causes.
	ErrUnknownFailure = errors.New("unknown failure")
)

// ConfigurationError describes one problem found while building a table.
type ConfigurationError struct {
	State  string
	Signal string
	Err    error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.State != "" && e.Signal != "":
		return fmt.Sprintf("rule %s --%s-->: %v", e.State, e.Signal, e.Err)
	case e.State != "":
		return fmt.Sprintf("state %s: %v", e.State, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UnhandledSignalError reports a signal that has no rule in the current state.
type UnhandledSignalError struct {
	State  string
	Signal string
}

func (e *UnhandledSignalError) Error() string {
	return fmt.Sprintf("state %s: %v %s", e.State, ErrUnhandledSignal, e.Signal)
}

func (e *UnhandledSignalError) Unwrap() error {
	return ErrUnhandledSignal
}

// PreconditionFailedError carries every cause reported by the preconditions
// of the selected rule. errors.Is matches ErrPreconditionFailed as well as
// each individual cause.
type PreconditionFailedError struct {
	State  string
	Signal string
	Causes []error
}

func (e *PreconditionFailedError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}

	return fmt.Sprintf("state %s, signal %s: %v: %s",
		e.State, e.Signal, ErrPreconditionFailed, strings.Join(msgs, "; "))
}

func (e *PreconditionFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Causes)+1)
	out = append(out, ErrPreconditionFailed)

	return append(out, e.Causes...)
}

// HandlerError wraps a handler that panicked or returned no result.
type HandlerError struct {
	State  string
	Signal string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for state %s, signal %s: %v", e.State, e.Signal, e.Err)
}

func (e *HandlerError) Unwrap() []error {
	return []error{ErrHandlerFailed, e.Err}
}

// ChainTooDeepError reports a chain of nested signals deeper than the limit.
type ChainTooDeepError struct {
	Depth int
	Limit int
}

func (e *ChainTooDeepError) Error() string {
	return fmt.Sprintf("%v: depth %d exceeds limit %d", ErrChainTooDeep, e.Depth, e.Limit)
}

func (e *ChainTooDeepError) Unwrap() error {
	return ErrChainTooDeep
}

// StateAccessError wraps a failure of Instance.CurrentState or
// Instance.SetCurrentState.
type StateAccessError struct {
	Op  string
	Err error
}

func (e *StateAccessError) Error() string {
	return fmt.Sprintf("%s state: %v", e.Op, e.Err)
}

func (e *StateAccessError) Unwrap() []error {
	return []error{ErrStateAccess, e.Err}
}

// IsUnhandled reports whether err is an unhandled-signal failure.
func IsUnhandled(err error) bool {
	return errors.Is(err, ErrUnhandledSignal)
}

// IsCancelled reports whether err represents a cancelled dispatch.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
