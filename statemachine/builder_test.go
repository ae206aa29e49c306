package statemachine_test

import (
	"context"
	"testing"

	"github.com/amp-labs/liminal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() statemachine.Handler {
	return statemachine.HandlerFunc(
		func(context.Context, *statemachine.SignalContext, statemachine.SignalName) *statemachine.Result {
			return statemachine.Completed(parked)
		})
}

func TestBuilder_Table(t *testing.T) {
	t.Parallel()

	always := statemachine.Require(func(context.Context, statemachine.SignalName) []error { return nil })

	table := buildTable(t, "airport", func(b *statemachine.Builder) {
		b.StartsIn(ground)
		b.For(ground).
			On(taxi).When(always).MoveTo(taxiing).
			On(park).MoveTo(parked).
			For(taxiing).
			On(flight{}).MoveToHandler(flying, noop())
		b.For(flying).On(land).MoveTo(landing)
		b.For(landing).On(park).MoveTo(parked)
		b.Terminal(parked)
	})

	assert.Equal(t, "airport", table.Name())
	assert.Equal(t, ground, table.Initial())
	assert.Len(t, table.Rules(), 5)

	names := make([]string, 0)
	for _, s := range table.States() {
		names = append(names, s.Name())
	}

	assert.Equal(t, []string{"ground", "taxiing", "parked", "flying", "landing"}, names)

	rule, ok := table.Lookup("ground", "taxi")
	require.True(t, ok)
	assert.Equal(t, taxiing, rule.Next)
	assert.Len(t, rule.Preconditions, 1)
	assert.False(t, rule.HasHandler())

	rule, ok = table.Lookup("taxiing", "takeoff")
	require.True(t, ok)
	assert.True(t, rule.HasHandler())
	assert.Equal(t, flying, rule.Next)

	_, ok = table.Lookup("parked", "taxi")
	assert.False(t, ok)

	assert.True(t, table.IsTerminal("parked"))
	assert.False(t, table.HasRulesFrom("parked"))
	assert.True(t, table.HasRulesFrom("ground"))
	assert.Equal(t, []string{"taxi", "park"}, table.SignalsFor("ground"))

	s, ok := table.State("landing")
	require.True(t, ok)
	assert.Equal(t, landing, s)

	// Rules returns a copy.
	rules := table.Rules()
	rules[0].Next = parked

	rule, _ = table.Lookup("ground", "taxi")
	assert.Equal(t, taxiing, rule.Next)
}

func TestBuilder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		configure func(b *statemachine.Builder)
		wantErr   []error
	}{
		{
			name: "no initial state",
			configure: func(b *statemachine.Builder) {
				b.For(ground).On(taxi).MoveTo(taxiing)
				b.Terminal(taxiing)
			},
			wantErr: []error{statemachine.ErrNoInitialState},
		},
		{
			name: "duplicate rule",
			configure: func(b *statemachine.Builder) {
				b.StartsIn(ground)
				b.For(ground).On(taxi).MoveTo(taxiing).On(taxi).MoveTo(parked)
				b.Terminal(taxiing, parked)
			},
			wantErr: []error{statemachine.ErrDuplicateRule},
		},
		{
			name: "missing next state",
			configure: func(b *statemachine.Builder) {
				b.StartsIn(ground)
				b.For(ground).On(taxi).MoveTo(nil)
			},
			wantErr: []error{statemachine.ErrMissingNextState},
		},
		{
			name: "handler rule without handler",
			configure: func(b *statemachine.Builder) {
				b.StartsIn(ground)
				b.For(ground).On(taxi).MoveToHandler(flying, nil)
			},
			wantErr: []error{statemachine.ErrMissingNextState},
		},
		{
			name: "rule without source state",
			configure: func(b *statemachine.Builder) {
				b.StartsIn(ground)
				b.For(nil).On(taxi).MoveTo(ground)
			},
			wantErr: []error{statemachine.ErrInvalidRule},
		},
		{
			name: "nil precondition",
			configure: func(b *statemachine.Builder) {
				b.StartsIn(ground)
				b.For(ground).On(taxi).When(nil).MoveTo(taxiing)
				b.Terminal(taxiing)
			},
			wantErr: []error{statemachine.ErrInvalidRule},
		},
		{
			name: "strict dangling state",
			configure: func(b *statemachine.Builder) {
				b.Strict().StartsIn(ground)
				b.For(ground).On(taxi).MoveTo(taxiing)
			},
			wantErr: []error{statemachine.ErrDanglingNextState},
		},
		{
			name: "every problem is reported",
			configure: func(b *statemachine.Builder) {
				b.Strict()
				b.For(ground).On(taxi).MoveTo(taxiing).On(taxi).MoveTo(taxiing)
			},
			wantErr: []error{
				statemachine.ErrDuplicateRule,
				statemachine.ErrNoInitialState,
				statemachine.ErrDanglingNextState,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table, err := statemachine.BuildTable(tt.name, tt.configure)
			require.Error(t, err)
			assert.Nil(t, table)

			for _, want := range tt.wantErr {
				require.ErrorIs(t, err, want)
			}

			var cfgErr *statemachine.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestBuilder_DanglingIsWarningByDefault(t *testing.T) {
	t.Parallel()

	table, err := statemachine.NewBuilder("lenient").
		StartsIn(ground).
		For(ground).On(taxi).MoveTo(taxiing).
		Builder().
		Build()
	require.NoError(t, err)
	assert.False(t, table.HasRulesFrom("taxiing"))
}

func TestTable_Fingerprint(t *testing.T) {
	t.Parallel()

	build := func(next statemachine.State) *statemachine.Table {
		return buildTable(t, "fp", func(b *statemachine.Builder) {
			b.StartsIn(ground)
			b.For(ground).On(taxi).MoveTo(next)
			b.Terminal(taxiing, parked)
		})
	}

	assert.Equal(t, build(taxiing).Fingerprint(), build(taxiing).Fingerprint())
	assert.NotEqual(t, build(taxiing).Fingerprint(), build(parked).Fingerprint())
}
