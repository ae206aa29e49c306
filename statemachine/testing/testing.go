// Package testing provides helpers for testing state machine tables and
// hosts: a recording instance, result matchers, and table-driven scenarios.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/liminal/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds how long helpers wait for a pending result.
const DefaultTimeout = 5 * time.Second

// TestMachine is a Machine over a RecordingInstance whose engine logs to the test.
type TestMachine struct {
	*statemachine.Machine

	t        *testing.T
	Recorder *RecordingInstance
}

// NewTestMachine creates a test machine for table, starting in initial
// (nil means the table's initial state).
func NewTestMachine(
	t *testing.T,
	table *statemachine.Table,
	initial statemachine.State,
	opts ...statemachine.EngineOption,
) *TestMachine {
	t.Helper()

	opts = append([]statemachine.EngineOption{
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
	}, opts...)

	rec := NewRecordingInstance(initial)
	engine := statemachine.NewEngine(table, opts...)

	return &TestMachine{
		Machine:  statemachine.NewMachine(engine, rec, statemachine.WithMachineID(t.Name())),
		t:        t,
		Recorder: rec,
	}
}

// Send sends sig and waits for the result to complete.
func (tm *TestMachine) Send(sig statemachine.Signal) *statemachine.Result {
	tm.t.Helper()

	return Await(tm.t, tm.Signal(tm.t.Context(), sig))
}

// Expect sends sig and asserts every matcher against the result.
func (tm *TestMachine) Expect(sig statemachine.Signal, matchers ...Matcher) *statemachine.Result {
	tm.t.Helper()

	res := tm.Send(sig)
	AssertResult(tm.t, res, matchers...)

	return res
}

// Await waits up to DefaultTimeout for res to complete and returns it.
func Await(t *testing.T, res *statemachine.Result) *statemachine.Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.Context()), DefaultTimeout)
	defer cancel()

	select {
	case <-res.Done():
	case <-ctx.Done():
		require.FailNow(t, "timed out waiting for signal result")
	}

	return res
}

// AssertResult requires every matcher to match res.
func AssertResult(t *testing.T, res *statemachine.Result, matchers ...Matcher) {
	t.Helper()

	for _, m := range matchers {
		ok, err := m.Match(res)
		require.True(t, ok, "%s: %v", m.Description(), err)
	}
}

// RequireCompleted requires res to complete in the named state.
func RequireCompleted(t *testing.T, res *statemachine.Result, state string) {
	t.Helper()

	AssertResult(t, Await(t, res), CompletedIn(state))
}

// RequireFailed requires res to fail with an error matching target.
func RequireFailed(t *testing.T, res *statemachine.Result, target error) {
	t.Helper()

	AssertResult(t, Await(t, res), FailedWith(target))
}

// RequireCancelled requires res to be cancelled.
func RequireCancelled(t *testing.T, res *statemachine.Result) {
	t.Helper()

	AssertResult(t, Await(t, res), Cancelled())
}

// RequireUnchanged requires that nothing was written to rec since it had
// recorded writesBefore writes.
func RequireUnchanged(t *testing.T, rec *RecordingInstance, writesBefore int) {
	t.Helper()

	require.Len(t, rec.Writes(), writesBefore, "instance state should not have been written")
}
