package statemachine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/amp-labs/liminal/statemachine"
	smtesting "github.com/amp-labs/liminal/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const airportYAML = `
name: airport
initialState: ground
strict: true
terminal: [parked]
rules:
  - from: ground
    on: takeoff
    when: [fueled]
    moveTo: flying
    handler: autopilot
  - from: flying
    on: land
    moveTo: parked
`

func airportRegistry() *statemachine.Registry {
	fueled := statemachine.Require(func(_ context.Context, f flight) []error {
		if f.fuel <= 0 {
			return []error{errNoFuel}
		}

		return nil
	})

	autopilot := statemachine.HandlerFunc(
		func(ctx context.Context, sc *statemachine.SignalContext, _ flight) *statemachine.Result {
			return sc.Signal(ctx, land)
		})

	return statemachine.NewRegistry().
		RegisterState(ground, flying, parked).
		RegisterPrecondition("fueled", fueled).
		RegisterHandler("autopilot", autopilot)
}

func TestConfig_LoadAndBuild(t *testing.T) {
	t.Parallel()

	config, err := statemachine.LoadConfigFromBytes([]byte(airportYAML))
	require.NoError(t, err)

	assert.Equal(t, "airport", config.Name)
	assert.True(t, config.Strict)
	require.Len(t, config.Rules, 2)
	assert.Equal(t, []string{"fueled"}, config.Rules[0].When)

	table, err := config.Build(airportRegistry())
	require.NoError(t, err)

	tm := smtesting.NewTestMachine(t, table, nil)
	tm.Expect(flight{}, smtesting.FailedWith(statemachine.ErrPreconditionFailed), smtesting.HasCauses(errNoFuel))
	tm.Expect(flight{fuel: 10}, smtesting.CompletedIn("parked"))
	assert.Equal(t, []string{"parked"}, tm.Recorder.Writes())
}

func TestConfig_LoadFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"machines/airport.yaml": {Data: []byte(airportYAML)}}

	config, err := statemachine.LoadConfigFromFS(fsys, "machines/airport.yaml")
	require.NoError(t, err)
	assert.Equal(t, "ground", config.InitialState)

	_, err = statemachine.LoadConfigFromFS(fsys, "machines/missing.yaml")
	require.Error(t, err)
}

func TestConfig_LoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "airport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(airportYAML), 0o600))

	config, err := statemachine.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "airport", config.Name)
}

func TestConfig_Invalid(t *testing.T) {
	t.Parallel()

	_, err := statemachine.LoadConfigFromBytes([]byte("name: [unterminated"))
	require.ErrorIs(t, err, statemachine.ErrInvalidConfig)

	_, err = statemachine.LoadConfigFromBytes([]byte(`
rules:
  - from: ground
    on: taxi
`))
	require.ErrorIs(t, err, statemachine.ErrInvalidConfig)
	require.ErrorIs(t, err, statemachine.ErrNoInitialState)
	require.ErrorIs(t, err, statemachine.ErrMissingNextState)
}

func TestConfig_BuildResolveErrors(t *testing.T) {
	t.Parallel()

	config, err := statemachine.LoadConfigFromBytes([]byte(airportYAML))
	require.NoError(t, err)

	_, err = config.Build(statemachine.NewRegistry())
	require.ErrorIs(t, err, statemachine.ErrUnknownPrecondition)
	require.ErrorIs(t, err, statemachine.ErrUnknownHandler)

	config.Rules = append(config.Rules, statemachine.RuleConfig{From: "parked", On: "tow", MoveTo: "hangar"})

	_, err = config.Build(airportRegistry())
	require.ErrorIs(t, err, statemachine.ErrDanglingNextState)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := airportRegistry()

	assert.Equal(t, ground, reg.State("ground"))
	assert.Equal(t, statemachine.StateName("hangar"), reg.State("hangar"))

	_, err := reg.Precondition("fueled")
	require.NoError(t, err)

	_, err = reg.Precondition("insured")
	require.ErrorIs(t, err, statemachine.ErrUnknownPrecondition)
	assert.Contains(t, err.Error(), "fueled")

	_, err = reg.Handler("pilot")
	require.ErrorIs(t, err, statemachine.ErrUnknownHandler)
	assert.Contains(t, err.Error(), "autopilot")
}

func TestConfigOf(t *testing.T) {
	t.Parallel()

	config, err := statemachine.LoadConfigFromBytes([]byte(airportYAML))
	require.NoError(t, err)

	table, err := config.Build(airportRegistry())
	require.NoError(t, err)

	described := statemachine.ConfigOf(table)
	assert.Equal(t, "airport", described.Name)
	assert.Equal(t, "ground", described.InitialState)
	assert.Equal(t, []string{"parked"}, described.Terminal)
	require.Len(t, described.Rules, 2)
	assert.Equal(t, "flying", described.Rules[0].MoveTo)
	assert.NotEmpty(t, described.Rules[0].Handler)
	assert.Len(t, described.Rules[0].When, 1)
	assert.Empty(t, described.Rules[1].Handler)
}
