package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	liminalerrors "github.com/amp-labs/liminal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test error")

func TestNew_Success(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()
	assert.False(t, fut.IsDone())

	go func() {
		promise.Success(42)
	}()

	result, err := fut.Await()

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, fut.IsDone())
}

func TestNew_Error(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()

	go func() {
		promise.Failure(errTest)
	}()

	result, err := fut.Await()

	require.ErrorIs(t, err, errTest)
	assert.Equal(t, 0, result)
}

func TestReadyAndFailed(t *testing.T) {
	t.Parallel()

	ready := Ready("value")
	assert.True(t, ready.IsDone())

	value, err := ready.Result()
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	failed := Failed[string](errTest)
	assert.True(t, failed.IsDone())

	_, err = failed.Result()
	require.ErrorIs(t, err, errTest)
}

func TestResult_NotReady(t *testing.T) {
	t.Parallel()

	fut, _ := New[int]()

	_, err := fut.Result()
	require.ErrorIs(t, err, ErrNotReady)
}

func TestPromise_OnlyFirstCompletionWins(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()

	assert.True(t, promise.TryComplete(1, nil))
	assert.False(t, promise.TryComplete(2, nil))
	promise.Failure(errTest)

	value, err := fut.Await()
	require.NoError(t, err)
	assert.Equal(t, 1, value)
	assert.Same(t, fut, promise.Future())
}

func TestAwaitContext_Cancelled(t *testing.T) {
	t.Parallel()

	fut, _ := New[int]()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := fut.AwaitContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOnResult(t *testing.T) {
	t.Parallel()

	t.Run("runs immediately when done", func(t *testing.T) {
		t.Parallel()

		called := false

		Ready(7).OnResult(func(v int, err error) {
			called = true

			assert.Equal(t, 7, v)
			assert.NoError(t, err)
		})

		assert.True(t, called)
	})

	t.Run("runs on fulfillment in registration order", func(t *testing.T) {
		t.Parallel()

		fut, promise := New[int]()

		var order []int

		fut.OnResult(func(int, error) { order = append(order, 1) })
		fut.OnResult(func(int, error) { order = append(order, 2) })

		assert.Empty(t, order)

		promise.Success(1)

		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("panicking callback does not stop others", func(t *testing.T) {
		t.Parallel()

		fut, promise := New[int]()

		called := false

		fut.OnResult(func(int, error) { panic("boom") })
		fut.OnResult(func(int, error) { called = true })

		promise.Success(1)

		assert.True(t, called)
	})
}

func TestGoContext(t *testing.T) {
	t.Parallel()

	fut := GoContext(t.Context(), func(ctx context.Context) (string, error) {
		return "done", nil
	})

	value, err := fut.Await()
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	panicking := GoContext(t.Context(), func(ctx context.Context) (string, error) {
		panic("kaboom")
	})

	_, err = panicking.Await()
	require.ErrorIs(t, err, liminalerrors.ErrPanicRecovery)
}

func TestAll(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		values, err := All[int]().Result()
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("keeps input order", func(t *testing.T) {
		t.Parallel()

		first, p1 := New[int]()
		second, p2 := New[int]()
		combined := All(first, Ready(0), second)

		assert.False(t, combined.IsDone())

		var wg sync.WaitGroup

		wg.Add(2)

		go func() {
			defer wg.Done()

			time.Sleep(5 * time.Millisecond)
			p1.Success(1)
		}()

		go func() {
			defer wg.Done()

			p2.Success(2)
		}()

		values, err := combined.Await()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0, 2}, values)

		wg.Wait()
	})

	t.Run("first error fails", func(t *testing.T) {
		t.Parallel()

		pending, _ := New[int]()

		_, err := All(pending, Failed[int](errTest)).Result()
		require.ErrorIs(t, err, errTest)
	})
}
