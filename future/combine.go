package future

import (
	"context"
	"runtime/debug"

	"github.com/amp-labs/liminal/errors"
	"go.uber.org/atomic"
)

// GoContext runs fn on a new goroutine and returns a future for its result.
// A panic inside fn fails the future with an error wrapping errors.ErrPanicRecovery.
func GoContext[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	fut, promise := New[T]()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Failure(errors.FromPanic(r, debug.Stack()))
			}
		}()

		promise.Complete(fn(ctx))
	}()

	return fut
}

// All returns a future that completes once every input future has completed.
// Values keep the order of the inputs. The first error observed fails the
// combined future. With no inputs the result is an already completed empty slice.
func All[T any](futures ...*Future[T]) *Future[[]T] {
	if len(futures) == 0 {
		return Ready([]T{})
	}

	out, promise := New[[]T]()
	values := make([]T, len(futures))
	remaining := atomic.NewInt64(int64(len(futures)))

	for i, fut := range futures {
		fut.OnResult(func(value T, err error) {
			if err != nil {
				promise.Failure(err)

				return
			}

			values[i] = value

			if remaining.Dec() == 0 {
				promise.Success(values)
			}
		})
	}

	return out
}
