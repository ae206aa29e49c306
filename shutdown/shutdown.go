// Package shutdown coordinates process teardown: a signal-aware root
// context plus an ordered list of named hooks that flush and release
// process-wide resources (worker pools, telemetry exporters).
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/amp-labs/liminal/logger"
)

// DefaultTimeout bounds how long all hooks together may take.
const DefaultTimeout = 10 * time.Second

// Hook releases one resource. The context is cancelled once the shutdown
// timeout elapses.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []namedHook    //nolint:gochecknoglobals
	trigger chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a hook. Hooks run in registration order when
// shutdown starts, before the root context is cancelled.
func BeforeShutdown(name string, h Hook) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, namedHook{name: name, fn: h})
}

// Shutdown triggers the shutdown process programmatically. It is a no-op
// when SetupHandler has not been called.
func Shutdown() {
	mut.Lock()
	ch := trigger
	mut.Unlock()

	if ch != nil {
		select {
		case ch <- os.Interrupt:
		default:
		}
	}
}

// SetupHandler installs a SIGINT/SIGTERM handler and returns a context
// derived from parent that is cancelled after the hooks have run.
func SetupHandler(parent context.Context) context.Context {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	trigger = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		defer cancel()

		select {
		case sig := <-ch:
			logger.Get(ctx).Warn("Received " + sig.String() + ", shutting down...")
		case <-parent.Done():
		}

		signal.Stop(ch)

		mut.Lock()
		trigger = nil
		mut.Unlock()

		Run(context.WithoutCancel(ctx), DefaultTimeout)
	}()

	return ctx
}

// Run executes and clears every registered hook. Hook errors are logged,
// not returned, so one failing resource cannot block the others.
func Run(ctx context.Context, timeout time.Duration) {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, h := range pending {
		if err := h.fn(ctx); err != nil {
			logger.Get(ctx).Error("shutdown hook failed", "hook", h.name, "error", err)
		}
	}
}
