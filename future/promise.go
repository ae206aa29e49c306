package future

// Promise represents the write-only side of an asynchronous computation.
//
// A Promise can only be fulfilled once. Later calls to Success, Failure or
// Complete are ignored, which makes it safe to race several producers
// (for example a worker and a cancellation hook) against the same future.
type Promise[T any] struct {
	future *Future[T]
}

// Future returns the future completed by this promise.
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// fulfill stores the result, closes the ready channel, and runs every
// registered callback. It reports whether this call completed the future.
func (p *Promise[T]) fulfill(result outcome[T]) bool {
	fulfilled := false

	p.future.once.Do(func() {
		fulfilled = true

		p.future.result = result

		// The lock makes callback registration and completion atomic with
		// respect to each other.
		p.future.mu.Lock()
		p.future.done.Store(true)
		close(p.future.resultReady)

		callbacks := p.future.callbacks
		p.future.callbacks = nil

		p.future.mu.Unlock()

		for _, callback := range callbacks {
			invokeCallback(callback, result.value, result.err)
		}
	})

	return fulfilled
}

// Success fulfills the promise with a successful value.
func (p *Promise[T]) Success(value T) {
	p.fulfill(outcome[T]{value: value})
}

// Failure fulfills the promise with an error. The value is the zero value of T.
func (p *Promise[T]) Failure(err error) {
	var zero T

	p.fulfill(outcome[T]{value: zero, err: err})
}

// Complete fulfills the promise with a value and error pair.
//
//   - If err != nil: behaves like Failure(err), ignoring the value
//   - If err == nil: behaves like Success(value)
func (p *Promise[T]) Complete(value T, err error) {
	if err != nil {
		p.Failure(err)
	} else {
		p.Success(value)
	}
}

// TryComplete is like Complete but reports whether this call was the one
// that completed the future.
func (p *Promise[T]) TryComplete(value T, err error) bool {
	if err != nil {
		var zero T

		return p.fulfill(outcome[T]{value: zero, err: err})
	}

	return p.fulfill(outcome[T]{value: value})
}
