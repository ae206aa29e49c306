package statemachine

import (
	"context"
	"errors"
	"fmt"

	liminalerrors "github.com/amp-labs/liminal/errors"
	"github.com/amp-labs/liminal/future"
)

// Status is the observable outcome of a dispatch.
type Status int

const (
	// StatusPending means processing suspended and has not finished yet.
	StatusPending Status = iota
	// StatusCompleted means the chain settled and (for the outermost call)
	// the instance was updated.
	StatusCompleted
	// StatusFailed means the dispatch failed; see Result.Causes.
	StatusFailed
	// StatusCancelled means the dispatch was cancelled before committing.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the aggregate outcome of processing one signal. It starts out
// either already complete (a synchronous chain) or pending, and completes
// exactly once.
type Result struct {
	fut *future.Future[State]
}

// Completed returns a result that settled in state.
func Completed(state State) *Result {
	return &Result{fut: future.Ready(state)}
}

// Failed returns a failed result carrying causes. Nil causes are dropped;
// with no causes left the result fails with ErrUnknownFailure.
func Failed(causes ...error) *Result {
	var errs liminalerrors.Collection

	for _, c := range causes {
		errs.Add(c)
	}

	if !errs.HasError() {
		errs.Add(ErrUnknownFailure)
	}

	return &Result{fut: future.Failed[State](errs.GetError())}
}

// cancelled returns a result for a dispatch stopped by ctx.
func cancelled(ctx context.Context) *Result {
	return &Result{fut: future.Failed[State](cancelledError(ctx.Err()))}
}

func cancelledError(cause error) error {
	if cause == nil || errors.Is(cause, ErrCancelled) {
		return ErrCancelled
	}

	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// pendingResult returns a pending result and the promise that settles it.
func pendingResult() (*Result, *future.Promise[State]) {
	fut, promise := future.New[State]()

	return &Result{fut: fut}, promise
}

// Status reports the current status without blocking.
func (r *Result) Status() Status {
	if !r.fut.IsDone() {
		return StatusPending
	}

	_, err := r.fut.Result()

	switch {
	case err == nil:
		return StatusCompleted
	case IsCancelled(err):
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// IsPending reports whether processing has not finished.
func (r *Result) IsPending() bool { return r.Status() == StatusPending }

// IsCompleted reports whether processing completed successfully.
func (r *Result) IsCompleted() bool { return r.Status() == StatusCompleted }

// IsFailed reports whether processing failed.
func (r *Result) IsFailed() bool { return r.Status() == StatusFailed }

// IsCancelled reports whether processing was cancelled.
func (r *Result) IsCancelled() bool { return r.Status() == StatusCancelled }

// Done returns a channel closed when the result is no longer pending.
func (r *Result) Done() <-chan struct{} {
	return r.fut.Done()
}

// State returns the settled state of a completed result, or nil.
func (r *Result) State() State { //nolint:ireturn
	s, err := r.fut.Result()
	if err != nil {
		return nil
	}

	return s
}

// Err returns the failure of a failed or cancelled result, ErrPending while
// pending, and nil when completed.
func (r *Result) Err() error {
	_, err := r.fut.Result()
	if errors.Is(err, future.ErrNotReady) {
		return ErrPending
	}

	return err
}

// Causes returns the individual causes of a failure. For a precondition
// failure these are exactly the causes the preconditions reported; nil
// unless the result failed or was cancelled.
func (r *Result) Causes() []error {
	if !r.fut.IsDone() {
		return nil
	}

	_, err := r.fut.Result()
	if err == nil {
		return nil
	}

	var pf *PreconditionFailedError
	if errors.As(err, &pf) {
		return append([]error(nil), pf.Causes...)
	}

	return liminalerrors.Causes(err)
}

// Now returns the outcome if the result has completed and ErrPending
// otherwise. It never blocks; it is the entry point for hosts that only
// support synchronous processing.
func (r *Result) Now() (State, error) { //nolint:ireturn
	if !r.fut.IsDone() {
		return nil, ErrPending
	}

	return r.fut.Result()
}

// MustNow is like Now but panics unless the result completed successfully.
func (r *Result) MustNow() State { //nolint:ireturn
	s, err := r.Now()
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}

	return s
}

// Await blocks until the result completes or ctx is done. Giving up on the
// wait does not cancel the dispatch itself.
func (r *Result) Await(ctx context.Context) (State, error) { //nolint:ireturn
	s, err := r.fut.AwaitContext(ctx)
	if err == nil {
		return s, nil
	}

	if r.fut.IsDone() {
		return r.fut.Result()
	}

	return nil, cancelledError(err)
}

// onResolved registers fn to run once the result completes.
func (r *Result) onResolved(fn func(State, error)) {
	r.fut.OnResult(fn)
}

func (r *Result) String() string {
	switch st := r.Status(); st {
	case StatusCompleted:
		return "completed(" + nameOf(r.State()) + ")"
	case StatusPending:
		return st.String()
	default:
		return st.String() + "(" + r.Err().Error() + ")"
	}
}
