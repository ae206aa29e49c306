package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	mut.Lock()
	defer mut.Unlock()

	hooks = nil
	trigger = nil
}

//nolint:paralleltest // Test modifies package globals
func TestRun_OrderAndErrors(t *testing.T) {
	reset()

	var order []string

	BeforeShutdown("first", func(context.Context) error {
		order = append(order, "first")

		return errors.New("flush failed") //nolint:err113
	})

	BeforeShutdown("second", func(ctx context.Context) error {
		order = append(order, "second")

		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)

		return nil
	})

	Run(t.Context(), time.Second)

	assert.Equal(t, []string{"first", "second"}, order)

	mut.Lock()
	assert.Nil(t, hooks)
	mut.Unlock()

	// Hooks only run once.
	Run(t.Context(), time.Second)
	assert.Len(t, order, 2)
}

//nolint:paralleltest // Test modifies package globals
func TestShutdown_CancelsContextAfterHooks(t *testing.T) {
	reset()

	ctx := SetupHandler(t.Context())

	var hookSawLiveContext atomic.Bool

	BeforeShutdown("probe", func(context.Context) error {
		hookSawLiveContext.Store(ctx.Err() == nil)

		return nil
	})

	Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled after Shutdown()")
	}

	assert.True(t, hookSawLiveContext.Load())
}

//nolint:paralleltest // Test modifies package globals
func TestSetupHandler_ParentCancel(t *testing.T) {
	reset()

	parent, cancel := context.WithCancel(t.Context())

	ctx := SetupHandler(parent)

	var called atomic.Bool

	BeforeShutdown("probe", func(context.Context) error {
		called.Store(true)

		return nil
	})

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled with its parent")
	}

	require.Eventually(t, called.Load, time.Second, 5*time.Millisecond)
}

//nolint:paralleltest // Test modifies package globals
func TestShutdownWithoutSetup(t *testing.T) {
	reset()

	assert.NotPanics(t, Shutdown)
}
