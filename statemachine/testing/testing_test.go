package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/amp-labs/liminal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTooDim = errors.New("too dim")

const (
	off    = statemachine.StateName("off")
	on     = statemachine.StateName("on")
	broken = statemachine.StateName("broken")
)

type flip struct{ brightness int }

func (flip) Name() string { return "flip" }

func lampTable(t *testing.T) *statemachine.Table {
	t.Helper()

	bright := statemachine.Require(func(_ context.Context, f flip) []error {
		if f.brightness < 1 {
			return []error{errTooDim}
		}

		return nil
	})

	table, err := statemachine.BuildTable("lamp", func(b *statemachine.Builder) {
		b.StartsIn(off)
		b.For(off).On(flip{}).When(bright).MoveTo(on)
		b.For(on).On(flip{}).MoveTo(off)
		b.Terminal(broken)
	})
	require.NoError(t, err)

	return table
}

func TestRecordingInstance(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	rec := NewRecordingInstance(off)

	s, err := rec.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, off, s)

	require.NoError(t, rec.SetCurrentState(ctx, on))
	assert.Equal(t, []string{"on"}, rec.Writes())
	assert.Equal(t, 1, rec.Reads())
	assert.Equal(t, on, rec.State())

	errBoom := errors.New("boom")
	rec.FailWrites(errBoom).FailReads(errBoom)

	require.ErrorIs(t, rec.SetCurrentState(ctx, off), errBoom)

	_, err = rec.CurrentState(ctx)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, on, rec.State())
}

func TestTestMachine(t *testing.T) {
	t.Parallel()

	tm := NewTestMachine(t, lampTable(t), nil)

	tm.Expect(flip{brightness: 3}, CompletedIn("on"))
	tm.Expect(flip{}, CompletedIn("off"))

	res := tm.Expect(flip{}, FailedWith(statemachine.ErrPreconditionFailed), HasCauses(errTooDim))
	assert.Equal(t, []error{errTooDim}, res.Causes())

	RequireUnchanged(t, tm.Recorder, 2)
	assert.Equal(t, []string{"on", "off"}, tm.Recorder.Writes())
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	done := statemachine.Completed(on)
	failed := statemachine.Failed(errTooDim)

	ok, err := CompletedIn("on").Match(done)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CompletedIn("off").Match(done)
	require.ErrorIs(t, err, ErrWrongState)
	assert.False(t, ok)

	ok, err = CompletedIn("on").Match(failed)
	require.ErrorIs(t, err, ErrNotCompleted)
	assert.False(t, ok)

	ok, _ = FailedWith(errTooDim).Match(failed)
	assert.True(t, ok)

	ok, err = Cancelled().Match(failed)
	require.ErrorIs(t, err, ErrNotCancelled)
	assert.False(t, ok)

	ok, _ = Any(CompletedIn("off"), CompletedIn("on")).Match(done)
	assert.True(t, ok)

	ok, err = All(CompletedIn("on"), FailedWith(errTooDim)).Match(done)
	require.ErrorIs(t, err, ErrNotFailed)
	assert.False(t, ok)

	ok, err = Any(Cancelled()).Match(done)
	require.ErrorIs(t, err, ErrNoMatchersPassed)
	assert.False(t, ok)
}

func TestRequireCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	tm := NewTestMachine(t, lampTable(t), nil)
	RequireCancelled(t, tm.Signal(ctx, flip{brightness: 1}))
	RequireUnchanged(t, tm.Recorder, 0)
}

func TestRunScenario(t *testing.T) {
	t.Parallel()

	table := lampTable(t)

	RunScenario(t, table, Scenario{
		Name: "toggle twice",
		Steps: []Step{
			{Signal: flip{brightness: 1}, Expect: []Matcher{CompletedIn("on")}},
			{Signal: flip{}, Expect: []Matcher{CompletedIn("off")}},
		},
		FinalState: "off",
		Writes:     []string{"on", "off"},
	})

	RunScenario(t, table, Scenario{
		Name:  "broken lamp ignores flips",
		Start: broken,
		Steps: []Step{
			{Signal: flip{brightness: 1}, Expect: []Matcher{FailedWith(statemachine.ErrUnhandledSignal)}},
		},
		FinalState: "broken",
		Writes:     []string{},
	})
}
