package statemachine

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/liminal/bgworker"
	liminalerrors "github.com/amp-labs/liminal/errors"
	"github.com/amp-labs/liminal/future"
	"github.com/amp-labs/liminal/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxDepth bounds how deeply handlers may nest signal emissions.
const DefaultMaxDepth = 64

// Metric outcome labels.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
	outcomeUnhandled = "unhandled"
	outcomeRejected  = "rejected"
)

// Engine dispatches signals against one table. It holds no per-instance
// state and may be shared by every instance of the table.
type Engine struct {
	table    *Table
	logger   Logger
	maxDepth int
	pool     pond.Pool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logging hooks. The default is NewDefaultLogger().
func WithLogger(l Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxDepth sets the nesting limit for handler emissions. Zero disables
// the limit.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth >= 0 {
			e.maxDepth = depth
		}
	}
}

// WithPool sets the worker pool that resumes suspended chains. The default
// is the shared bgworker pool.
func WithPool(pool pond.Pool) EngineOption {
	return func(e *Engine) {
		e.pool = pool
	}
}

// NewEngine creates an engine for table.
func NewEngine(table *Table, opts ...EngineOption) *Engine {
	e := &Engine{
		table:    table,
		logger:   NewDefaultLogger(),
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Table returns the engine's table.
func (e *Engine) Table() *Table {
	return e.table
}

// Process dispatches sig to inst. Processing runs on the calling goroutine
// until something suspends; if nothing does, the returned result is already
// complete. Nested signals emitted by handlers are processed as part of the
// same chain, and only this outermost call writes the instance.
//
// Process does not serialize concurrent calls for the same instance; use a
// Machine for that.
func (e *Engine) Process(ctx context.Context, inst Instance, sig Signal) *Result {
	start := time.Now()
	c := &chain{engine: e, inst: inst, id: uuid.NewString()}

	ctx = logger.With(ctx, "machine", e.table.Name(), "chain_id", c.id)
	ctx, span := startProcessSpan(ctx, e.table.Name(), c.id, sig)

	res := e.begin(ctx, c, sig)

	if res.IsPending() {
		pendingSignals.WithLabelValues(sanitizeLabel(e.table.Name())).Inc()

		res.onResolved(func(State, error) {
			pendingSignals.WithLabelValues(sanitizeLabel(e.table.Name())).Dec()
		})
	}

	res.onResolved(func(_ State, err error) {
		e.finish(ctx, span, c, sig, start, err)
	})

	return res
}

func (e *Engine) begin(ctx context.Context, c *chain, sig Signal) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(liminalerrors.FromPanic(r, debug.Stack()))
		}
	}()

	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	current, err := c.inst.CurrentState(ctx)
	if err != nil {
		return Failed(&StateAccessError{Op: "read", Err: err})
	}

	if current == nil {
		current = e.table.Initial()
	}

	c.from = current
	c.state = current
	c.path = []string{current.Name()}

	e.logger.SignalReceived(ctx, e.table.Name(), current.Name(), nameOf(sig))

	return c.then(ctx, c.step(ctx, sig, 0), func(final State) *Result {
		return c.commit(ctx, final)
	})
}

func (e *Engine) finish(ctx context.Context, span trace.Span, c *chain, sig Signal, start time.Time, err error) {
	outcome := outcomeOf(err)
	elapsed := time.Since(start)
	machine := sanitizeLabel(e.table.Name())

	signalsTotal.WithLabelValues(machine, sanitizeLabel(nameOf(c.from)), sanitizeLabel(nameOf(sig)), outcome).Inc()
	processDuration.WithLabelValues(machine, outcome).Observe(elapsed.Seconds())
	chainDepth.WithLabelValues(machine).Observe(float64(c.deepest))

	endSpan(span, err, c.path)

	e.logger.SignalProcessed(ctx, e.table.Name(), nameOf(c.from), nameOf(sig), statusOf(err), elapsed, err)
}

// schedule runs fn on the worker pool. If the pool refuses the task (it is
// stopped), fn runs on the calling goroutine so the chain still completes.
func (e *Engine) schedule(ctx context.Context, fn func()) {
	pool := e.pool
	if pool == nil {
		pool = bgworker.Pool()
	}

	if err := pool.Go(fn); err != nil {
		logger.Get(ctx).Warn("worker pool rejected continuation, running inline", "error", err)
		fn()
	}
}

// chain is the in-flight state of one outermost dispatch. Its fields are
// only touched by one step at a time: either synchronously, or from a
// continuation that runs after the previous step's result completed.
type chain struct {
	engine  *Engine
	inst    Instance
	id      string
	from    State
	state   State
	path    []string
	deepest int
}

// step processes one signal from the chain's current state.
func (c *chain) step(ctx context.Context, sig Signal, depth int) *Result {
	e := c.engine
	machine := e.table.Name()

	if sig == nil {
		return Failed(&UnhandledSignalError{State: nameOf(c.state), Signal: "<nil>"})
	}

	if depth > c.deepest {
		c.deepest = depth
	}

	if e.maxDepth > 0 && depth > e.maxDepth {
		return Failed(&ChainTooDeepError{Depth: depth, Limit: e.maxDepth})
	}

	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	from := c.state

	rule, ok := e.table.Lookup(from.Name(), sig.Name())
	if !ok {
		e.logger.SignalUnhandled(ctx, machine, from.Name(), sig.Name(), depth)

		return Failed(&UnhandledSignalError{State: from.Name(), Signal: sig.Name()})
	}

	ctx, span := startSignalSpan(ctx, machine, c.id, from.Name(), sig.Name(), depth)

	res := continueWith(ctx, e, c.checkPreconditions(ctx, rule, sig), func(causes []error) *Result {
		if len(causes) > 0 {
			preconditionRejectionsTotal.WithLabelValues(
				sanitizeLabel(machine), sanitizeLabel(from.Name()), sanitizeLabel(sig.Name())).Inc()
			e.logger.PreconditionRejected(ctx, machine, from.Name(), sig.Name(), causes)

			return Failed(&PreconditionFailedError{State: from.Name(), Signal: sig.Name(), Causes: causes})
		}

		if ctx.Err() != nil {
			return cancelled(ctx)
		}

		c.state = rule.Next
		c.path = append(c.path, rule.Next.Name())

		transitionsTotal.WithLabelValues(
			sanitizeLabel(machine), sanitizeLabel(from.Name()),
			sanitizeLabel(rule.Next.Name()), sanitizeLabel(sig.Name())).Inc()
		e.logger.TransitionExecuted(ctx, machine, from.Name(), rule.Next.Name(), sig.Name(), depth)

		if !rule.HasHandler() {
			return Completed(rule.Next)
		}

		return c.invoke(ctx, rule, sig, depth)
	})

	res.onResolved(func(_ State, err error) {
		endSpan(span, err, nil)
	})

	return res
}

// checkPreconditions evaluates every precondition of rule and concatenates
// the causes they report, in declaration order.
func (c *chain) checkPreconditions(ctx context.Context, rule Rule, sig Signal) *future.Future[[]error] {
	if len(rule.Preconditions) == 0 {
		return future.Ready[[]error](nil)
	}

	checks := make([]*future.Future[[]error], len(rule.Preconditions))
	for i, p := range rule.Preconditions {
		checks[i] = safeCheck(ctx, p, sig)
	}

	out, promise := future.New[[]error]()

	future.All(checks...).OnResult(func(verdicts [][]error, err error) {
		if err != nil {
			promise.Failure(err)

			return
		}

		var causes []error

		for _, v := range verdicts {
			for _, cause := range v {
				if cause != nil {
					causes = append(causes, cause)
				}
			}
		}

		promise.Success(causes)
	})

	return out
}

func safeCheck(ctx context.Context, p Precondition, sig Signal) (fut *future.Future[[]error]) {
	defer func() {
		if r := recover(); r != nil {
			fut = future.Failed[[]error](liminalerrors.FromPanic(r, debug.Stack()))
		}
	}()

	fut = p.Check(ctx, sig)
	if fut == nil {
		fut = future.Ready[[]error](nil)
	}

	return fut
}

// invoke runs the handler of rule. The chain is already in rule.Next.
func (c *chain) invoke(ctx context.Context, rule Rule, sig Signal, depth int) *Result {
	machine := c.engine.table.Name()
	state := rule.Next.Name()
	sc := &SignalContext{chain: c, state: rule.Next, signal: sig, depth: depth}

	ctx, span := startHandlerSpan(ctx, machine, c.id, state, sig.Name())
	start := time.Now()

	res := c.callHandler(ctx, rule.Handler, sc, sig)

	res.onResolved(func(_ State, err error) {
		endSpan(span, err, nil)
		c.engine.logger.HandlerCompleted(ctx, machine, state, sig.Name(), time.Since(start), err)
	})

	return c.then(ctx, res, func(final State) *Result {
		if final == nil {
			return Failed(&HandlerError{State: state, Signal: sig.Name(), Err: ErrMissingNextState})
		}

		c.state = final

		return Completed(final)
	})
}

func (c *chain) callHandler(ctx context.Context, h Handler, sc *SignalContext, sig Signal) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed(&HandlerError{
				State:  nameOf(sc.state),
				Signal: sig.Name(),
				Err:    liminalerrors.FromPanic(r, debug.Stack()),
			})
		}
	}()

	res = h.Invoke(ctx, sc, sig)
	if res == nil {
		res = Failed(&HandlerError{State: nameOf(sc.state), Signal: sig.Name(), Err: ErrNilResult})
	}

	return res
}

// commit writes the final state. Only the outermost dispatch calls it.
func (c *chain) commit(ctx context.Context, final State) *Result {
	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	if err := c.inst.SetCurrentState(ctx, final); err != nil {
		return Failed(&StateAccessError{
			Op:  "write",
			Err: logger.AnnotateError(err, "state", final.Name()),
		})
	}

	c.engine.logger.StateCommitted(ctx, c.engine.table.Name(), nameOf(c.from), final.Name(), c.path)

	return Completed(final)
}

// then continues with fn once r completes successfully; failures propagate
// unchanged.
func (c *chain) then(ctx context.Context, r *Result, fn func(State) *Result) *Result {
	return continueWith(ctx, c.engine, r.fut, fn)
}

// continueWith runs fn with the value of fut. When fut is already complete
// fn runs immediately, keeping synchronous chains synchronous; otherwise the
// returned result is pending and fn runs on the engine's pool once fut
// completes. A pending result is cancelled as soon as ctx is done; fn then
// never runs, even if fut completes later.
func continueWith[T any](ctx context.Context, e *Engine, fut *future.Future[T], fn func(T) *Result) *Result {
	if fut.IsDone() {
		v, err := fut.Result()
		if err != nil {
			return &Result{fut: future.Failed[State](err)}
		}

		return fn(v)
	}

	out, promise := pendingResult()

	stop := context.AfterFunc(ctx, func() {
		promise.TryComplete(nil, cancelledError(ctx.Err()))
	})

	fut.OnResult(func(v T, err error) {
		if !stop() {
			return
		}

		if err != nil {
			promise.Failure(err)

			return
		}

		e.schedule(ctx, func() {
			defer func() {
				if r := recover(); r != nil {
					promise.Failure(liminalerrors.FromPanic(r, debug.Stack()))
				}
			}()

			fn(v).onResolved(promise.Complete)
		})
	})

	return out
}

func outcomeOf(err error) string {
	var (
		unhandled *UnhandledSignalError
		rejected  *PreconditionFailedError
	)

	switch {
	case err == nil:
		return outcomeCompleted
	case IsCancelled(err):
		return outcomeCancelled
	case errors.As(err, &unhandled):
		return outcomeUnhandled
	case errors.As(err, &rejected):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusCompleted
	case IsCancelled(err):
		return StatusCancelled
	default:
		return StatusFailed
	}
}
