// Package bgworker owns the process-wide worker pool that runs suspended
// state-machine continuations.
package bgworker

import (
	"context"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/liminal/logger"
	"github.com/amp-labs/liminal/shutdown"
)

// DefaultWorkerCount is the pool size used when Configure is never called.
const DefaultWorkerCount = 32

var (
	mu          sync.Mutex           //nolint:gochecknoglobals
	workerPool  pond.Pool            //nolint:gochecknoglobals
	workerCount = DefaultWorkerCount //nolint:gochecknoglobals
)

// Configure sets the pool size. It only has an effect before the pool is
// first used and reports whether the setting was applied.
func Configure(count int) bool {
	mu.Lock()
	defer mu.Unlock()

	if workerPool != nil || count <= 0 {
		return false
	}

	workerCount = count

	return true
}

// Pool returns the shared pool, creating it on first use. The pool is
// stopped (waiting for queued work) when the process shuts down.
func Pool() pond.Pool { //nolint:ireturn
	mu.Lock()
	defer mu.Unlock()

	if workerPool != nil {
		return workerPool
	}

	logger.Get().Debug("Initializing background worker pool", "count", workerCount)

	pool := pond.NewPool(workerCount)
	workerPool = pool

	shutdown.BeforeShutdown("bgworker", func(context.Context) error {
		logger.Get().Debug("Stopping background worker pool")
		pool.StopAndWait()

		return nil
	})

	return pool
}

// Submit submits a function to the background worker pool.
// It returns a Task that can be used to wait for the function to complete.
func Submit(f func()) pond.Task { //nolint:ireturn
	return Pool().Submit(f)
}

// Go submits a function to the background worker pool. It returns immediately.
// It returns an error if the pool is stopped.
func Go(f func()) error {
	return Pool().Go(f)
}
