package future

import (
	"runtime/debug"

	"github.com/amp-labs/liminal/errors"
	"github.com/amp-labs/liminal/logger"
)

// invokeCallback runs a callback with panic recovery. A panicking callback is
// logged and swallowed so that it cannot prevent the remaining callbacks of
// the same future from running.
func invokeCallback[T any](callback func(T, error), value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr := errors.FromPanic(r, debug.Stack()); perr != nil {
				logger.Get().Error("panic encountered in future.OnResult callback", "error", perr)
			}
		}
	}()

	callback(value, err)
}
