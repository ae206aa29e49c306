// Package future provides a small Future/Promise pair for results that may
// not be available yet.
//
// A Future is the read-only side: it can be polled, awaited, or observed
// through callbacks. A Promise is the write-only side and completes the
// Future exactly once. Futures that are created already complete (Ready,
// Failed) never touch a goroutine, which lets callers keep synchronous
// paths synchronous.
package future

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// ErrNotReady is returned by Result when the future has not completed yet.
var ErrNotReady = errors.New("future is not ready")

// outcome holds the value and error a future completes with.
type outcome[T any] struct {
	value T
	err   error
}

// Future represents the read-only side of an asynchronous computation.
//
// Thread safety: all methods are safe to call from any goroutine.
type Future[T any] struct {
	resultReady chan struct{}    // closed when the future completes
	once        sync.Once        // guards completion
	mu          sync.Mutex       // guards callbacks
	done        *atomic.Bool     // fast-path completion flag
	result      outcome[T]       // written once, before done is set
	callbacks   []func(T, error) // pending OnResult callbacks
}

// New creates a pending future and the promise that completes it.
func New[T any]() (*Future[T], *Promise[T]) {
	fut := &Future[T]{
		resultReady: make(chan struct{}),
		done:        atomic.NewBool(false),
	}

	return fut, &Promise[T]{future: fut}
}

// Ready returns a future that is already completed with value.
func Ready[T any](value T) *Future[T] {
	fut, promise := New[T]()
	promise.Success(value)

	return fut
}

// Failed returns a future that is already completed with err.
func Failed[T any](err error) *Future[T] {
	fut, promise := New[T]()
	promise.Failure(err)

	return fut
}

// IsDone reports whether the future has completed. It never blocks.
func (f *Future[T]) IsDone() bool {
	return f.done.Load()
}

// Done returns a channel that is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.resultReady
}

// Result returns the completed value and error without blocking.
// If the future is still pending it returns ErrNotReady.
func (f *Future[T]) Result() (T, error) {
	if !f.done.Load() {
		var zero T

		return zero, ErrNotReady
	}

	return f.result.value, f.result.err
}

// Await blocks until the future completes.
func (f *Future[T]) Await() (T, error) {
	<-f.resultReady

	return f.result.value, f.result.err
}

// AwaitContext blocks until the future completes or ctx is done,
// whichever happens first. Abandoning the wait does not cancel the
// underlying computation.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.resultReady:
		return f.result.value, f.result.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// OnResult registers a callback that receives the value and error once the
// future completes. If the future is already complete the callback runs
// immediately on the calling goroutine; otherwise it runs on the goroutine
// that fulfills the promise. Callbacks must not block.
func (f *Future[T]) OnResult(callback func(T, error)) {
	if callback == nil {
		return
	}

	f.mu.Lock()

	if !f.done.Load() {
		f.callbacks = append(f.callbacks, callback)
		f.mu.Unlock()

		return
	}

	f.mu.Unlock()

	invokeCallback(callback, f.result.value, f.result.err)
}
