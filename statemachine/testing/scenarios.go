package testing

import (
	"testing"

	"github.com/amp-labs/liminal/statemachine"
	"github.com/stretchr/testify/require"
)

// Step is one signal of a scenario and what its result must look like.
type Step struct {
	Signal statemachine.Signal
	Expect []Matcher
}

// Scenario is a sequence of signals sent to a fresh instance.
type Scenario struct {
	Name string
	// Start is the initial instance state; nil means the table's initial state.
	Start statemachine.State
	Steps []Step
	// FinalState, when set, is the state the instance must end in.
	FinalState string
	// Writes, when set, is the exact sequence of committed states.
	Writes []string
}

// RunScenario runs scenario against table as a subtest.
func RunScenario(t *testing.T, table *statemachine.Table, scenario Scenario) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		tm := NewTestMachine(t, table, scenario.Start)

		for _, step := range scenario.Steps {
			tm.Expect(step.Signal, step.Expect...)
		}

		if scenario.FinalState != "" {
			state, err := tm.State(t.Context())
			require.NoError(t, err)
			require.Equal(t, scenario.FinalState, state.Name())
		}

		if scenario.Writes != nil {
			require.Equal(t, scenario.Writes, tm.Recorder.Writes())
		}
	})
}
