package statemachine

import (
	"context"
	"log/slog"
	"time"

	"github.com/amp-labs/liminal/logger"
)

// Logger provides logging hooks for signal dispatch.
type Logger interface {
	SignalReceived(ctx context.Context, machine, state, signal string)
	SignalUnhandled(ctx context.Context, machine, state, signal string, depth int)
	PreconditionRejected(ctx context.Context, machine, state, signal string, causes []error)
	TransitionExecuted(ctx context.Context, machine, from, to, signal string, depth int)
	HandlerCompleted(ctx context.Context, machine, state, signal string, duration time.Duration, err error)
	StateCommitted(ctx context.Context, machine, from, to string, path []string)
	SignalProcessed(ctx context.Context, machine, state, signal string, status Status,
		duration time.Duration, err error)
}

// DefaultLogger implements Logger using slog. Without an explicit logger it
// resolves one per call through logger.Get, so values attached to the
// context (machine, chain_id) end up on every line.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger that writes through the liminal logger package.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger creates a logger that writes to l.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if l.logger != nil {
		return l.logger
	}

	return logger.Get(ctx)
}

func (l *DefaultLogger) SignalReceived(ctx context.Context, machine, state, signal string) {
	l.get(ctx).DebugContext(ctx, "Signal received",
		"machine", machine,
		"state", state,
		"signal", signal,
	)
}

func (l *DefaultLogger) SignalUnhandled(ctx context.Context, machine, state, signal string, depth int) {
	l.get(ctx).WarnContext(ctx, "Signal unhandled",
		"machine", machine,
		"state", state,
		"signal", signal,
		"depth", depth,
	)
}

func (l *DefaultLogger) PreconditionRejected(ctx context.Context, machine, state, signal string, causes []error) {
	l.get(ctx).InfoContext(ctx, "Precondition rejected signal",
		"machine", machine,
		"state", state,
		"signal", signal,
		"causes", causes,
	)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, machine, from, to, signal string, depth int) {
	l.get(ctx).DebugContext(ctx, "Transition executed",
		"machine", machine,
		"from", from,
		"to", to,
		"signal", signal,
		"depth", depth,
	)
}

func (l *DefaultLogger) HandlerCompleted(
	ctx context.Context,
	machine, state, signal string,
	duration time.Duration,
	err error,
) {
	if err != nil && !IsCancelled(err) {
		l.get(ctx).ErrorContext(ctx, "Handler completed with error",
			"machine", machine,
			"state", state,
			"signal", signal,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)

		return
	}

	l.get(ctx).DebugContext(ctx, "Handler completed",
		"machine", machine,
		"state", state,
		"signal", signal,
		"duration_ms", duration.Milliseconds(),
	)
}

func (l *DefaultLogger) StateCommitted(ctx context.Context, machine, from, to string, path []string) {
	l.get(ctx).InfoContext(ctx, "State committed",
		"machine", machine,
		"from", from,
		"to", to,
		"path", path,
	)
}

func (l *DefaultLogger) SignalProcessed(
	ctx context.Context,
	machine, state, signal string,
	status Status,
	duration time.Duration,
	err error,
) {
	fields := []any{
		"machine", machine,
		"state", state,
		"signal", signal,
		"status", status.String(),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		l.get(ctx).InfoContext(ctx, "Signal not applied", append(fields, "error", err)...)

		return
	}

	l.get(ctx).DebugContext(ctx, "Signal processed", fields...)
}

// NopLogger discards every hook.
type NopLogger struct{}

func (NopLogger) SignalReceived(context.Context, string, string, string)                         {}
func (NopLogger) SignalUnhandled(context.Context, string, string, string, int)                   {}
func (NopLogger) PreconditionRejected(context.Context, string, string, string, []error)          {}
func (NopLogger) TransitionExecuted(context.Context, string, string, string, string, int)        {}
func (NopLogger) StateCommitted(context.Context, string, string, string, []string)               {}
func (NopLogger) HandlerCompleted(context.Context, string, string, string, time.Duration, error) {}
func (NopLogger) SignalProcessed(context.Context, string, string, string, Status, time.Duration, error) {
}
