package redisstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amp-labs/liminal/statemachine"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	closed = statemachine.StateName("closed")
	opened = statemachine.StateName("opened")
)

func doorTable(t *testing.T, extra bool) *statemachine.Table {
	t.Helper()

	table, err := statemachine.BuildTable("door", func(b *statemachine.Builder) {
		b.StartsIn(closed)
		b.For(closed).On(statemachine.SignalName("open")).MoveTo(opened)
		b.For(opened).On(statemachine.SignalName("close")).MoveTo(closed)

		if extra {
			b.For(opened).On(statemachine.SignalName("slam")).MoveTo(closed)
		}
	})
	require.NoError(t, err)

	return table
}

// setupMiniRedis creates a test Redis server and a client for it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestInstance_RoundTrip(t *testing.T) {
	t.Parallel()

	mr, client := setupMiniRedis(t)
	store := NewStore(client, doorTable(t, false), "test")
	inst := store.Instance("front")

	state, err := inst.CurrentState(t.Context())
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, inst.SetCurrentState(t.Context(), opened))

	state, err = inst.CurrentState(t.Context())
	require.NoError(t, err)
	assert.Equal(t, opened, state)

	assert.Equal(t, "opened", mr.HGet("test:door:front", "state"))

	updated, err := inst.UpdatedAt(t.Context())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), updated, time.Minute)

	require.NoError(t, store.Delete(t.Context(), "front"))
	assert.False(t, mr.Exists("test:door:front"))

	updated, err = inst.UpdatedAt(t.Context())
	require.NoError(t, err)
	assert.True(t, updated.IsZero())
}

func TestInstance_WithMachine(t *testing.T) {
	t.Parallel()

	_, client := setupMiniRedis(t)
	table := doorTable(t, false)
	store := NewStore(client, table, "test")

	engine := statemachine.NewEngine(table, statemachine.WithLogger(statemachine.NopLogger{}))
	machine := statemachine.NewMachine(engine, store.Instance("back"))

	state, err := machine.SignalSync(t.Context(), statemachine.SignalName("open"))
	require.NoError(t, err)
	assert.Equal(t, opened, state)

	// A second machine over the same key sees the committed state.
	other := statemachine.NewMachine(engine, store.Instance("back"))

	state, err = other.SignalSync(t.Context(), statemachine.SignalName("close"))
	require.NoError(t, err)
	assert.Equal(t, closed, state)
}

func TestInstance_TableMismatch(t *testing.T) {
	t.Parallel()

	_, client := setupMiniRedis(t)

	require.NoError(t, NewStore(client, doorTable(t, false), "test").
		Instance("side").SetCurrentState(t.Context(), opened))

	_, err := NewStore(client, doorTable(t, true), "test").Instance("side").CurrentState(t.Context())
	require.ErrorIs(t, err, ErrTableMismatch)
}

func TestInstance_UnknownState(t *testing.T) {
	t.Parallel()

	mr, client := setupMiniRedis(t)
	store := NewStore(client, doorTable(t, false), "test")

	mr.HSet("test:door:garage", "state", "ajar", "fingerprint", store.fingerprint())

	_, err := store.Instance("garage").CurrentState(t.Context())
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestInstance_RedisDown(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(client, doorTable(t, false), "test")

	_, err := store.Instance("front").CurrentState(t.Context())
	require.Error(t, err)
	require.Error(t, store.Ping(t.Context()))

	engine := statemachine.NewEngine(doorTable(t, false), statemachine.WithLogger(statemachine.NopLogger{}))
	res := engine.Process(t.Context(), store.Instance("front"), statemachine.SignalName("open"))
	require.ErrorIs(t, res.Err(), statemachine.ErrStateAccess)
}

func TestConnect(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	client, err := Connect(t.Context(), Config{
		URL:            "redis://" + mr.Addr() + "/0",
		ConnectTimeout: time.Second,
		RetryAttempts:  1,
	})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = Connect(t.Context(), Config{URL: "://bad", ConnectTimeout: time.Second})
	require.ErrorIs(t, err, ErrFailedToParseRedisConnString)

	_, err = Connect(context.Background(), Config{
		URL:            "redis://127.0.0.1:1/0",
		ConnectTimeout: time.Second,
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrRedisNotReady)
}

func TestConnectGivesUpWithoutFinalWait(t *testing.T) {
	t.Parallel()

	start := time.Now()

	_, err := Connect(t.Context(), Config{
		URL:            "redis://127.0.0.1:1/0",
		ConnectTimeout: 5 * time.Second,
		RetryAttempts:  1,
		RetryInterval:  time.Minute,
	})

	require.ErrorIs(t, err, ErrRedisNotReady)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "must not sleep out the timeout after the last attempt")
	assert.Less(t, time.Since(start), 4*time.Second)

	var joined interface{ Unwrap() []error }

	require.ErrorAs(t, err, &joined)
	require.Len(t, joined.Unwrap(), 2, "the last ping error is kept")
	assert.Error(t, joined.Unwrap()[1])
}
