package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amp-labs/liminal/future"
	"github.com/amp-labs/liminal/statemachine"
	"github.com/stretchr/testify/require"
)

const (
	ground  = statemachine.StateName("ground")
	taxiing = statemachine.StateName("taxiing")
	flying  = statemachine.StateName("flying")
	landing = statemachine.StateName("landing")
	parked  = statemachine.StateName("parked")
)

var (
	errNoFuel     = errors.New("no fuel")
	errNoPilot    = errors.New("no pilot")
	errBadWeather = errors.New("bad weather")
)

// flight is a signal with a payload.
type flight struct {
	fuel  int
	pilot string
}

func (flight) Name() string { return "takeoff" }

var (
	taxi = statemachine.SignalName("taxi")
	land = statemachine.SignalName("land")
	park = statemachine.SignalName("park")
)

// gate is a precondition whose verdict is delivered by the test.
type gate struct {
	fut     *future.Future[[]error]
	promise *future.Promise[[]error]
}

func newGate() *gate {
	fut, promise := future.New[[]error]()

	return &gate{fut: fut, promise: promise}
}

func (g *gate) Check(context.Context, statemachine.Signal) *future.Future[[]error] {
	return g.fut
}

func (g *gate) open() { g.promise.Success(nil) }

// buildTable builds a table or fails the test.
func buildTable(t *testing.T, name string, configure func(b *statemachine.Builder)) *statemachine.Table {
	t.Helper()

	table, err := statemachine.BuildTable(name, configure)
	require.NoError(t, err)

	return table
}

func newEngine(table *statemachine.Table, opts ...statemachine.EngineOption) *statemachine.Engine {
	return statemachine.NewEngine(table, append([]statemachine.EngineOption{
		statemachine.WithLogger(statemachine.NopLogger{}),
	}, opts...)...)
}
