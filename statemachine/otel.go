package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startProcessSpan creates the root span of an outermost dispatch.
// The caller is responsible for ending it (see endSpan).
//
//nolint:spancheck // Span lifecycle managed by caller
func startProcessSpan(ctx context.Context, machine, chainID string, sig Signal) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.process")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("chain_id", chainID),
		attribute.String("signal", nameOf(sig)),
	)

	return ctx, span
}

// startSignalSpan creates a child span for one step of a chain.
//
//nolint:spancheck // Span lifecycle managed by caller
func startSignalSpan(
	ctx context.Context,
	machine, chainID, state, signal string,
	depth int,
) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "signal."+signal)
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("chain_id", chainID),
		attribute.String("state", state),
		attribute.String("signal", signal),
		attribute.Int("depth", depth),
	)

	return ctx, span
}

// startHandlerSpan creates a child span for a handler invocation.
//
//nolint:spancheck // Span lifecycle managed by caller
func startHandlerSpan(ctx context.Context, machine, chainID, state, signal string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "handler."+state)
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("chain_id", chainID),
		attribute.String("state", state),
		attribute.String("signal", signal),
	)

	return ctx, span
}

// endSpan records the outcome on span and ends it.
func endSpan(span trace.Span, err error, path []string) {
	if len(path) > 0 {
		span.SetAttributes(attribute.StringSlice("path", path))
	}

	span.SetAttributes(attribute.String("outcome", outcomeOf(err)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}
