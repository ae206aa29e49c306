// Package redisstate persists state machine instances in Redis. Each
// instance is a hash holding the state name, the fingerprint of the table
// that wrote it, and the time of the last write.
package redisstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amp-labs/liminal/logger"
	"github.com/amp-labs/liminal/statemachine"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnknownState indicates a stored state name the table does not know.
	ErrUnknownState = errors.New("stored state is not part of the table")
	// ErrTableMismatch indicates the instance was written by a table with a
	// different structure.
	ErrTableMismatch = errors.New("stored state was written by a different table")
	// ErrFailedToParseRedisConnString indicates an invalid REDIS_URL.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	// ErrRedisNotReady indicates every connection attempt failed.
	ErrRedisNotReady = errors.New("redis is not ready")
)

const (
	fieldState       = "state"
	fieldFingerprint = "fingerprint"
	fieldUpdatedAt   = "updated_at"
)

// Config holds the Redis connection settings.
type Config struct {
	URL            string        `env:"REDIS_URL"             envDefault:"redis://localhost:6379/0"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX"      envDefault:"liminal"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"5s"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS"  envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL"  envDefault:"500ms"`
}

// Connect opens a client and pings it, retrying up to cfg.RetryAttempts times.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	attempts := max(cfg.RetryAttempts, 1)

	var lastErr error

	for attempt := range attempts {
		client := redis.NewClient(opts)

		lastErr = client.Ping(ctx).Err()
		if lastErr == nil {
			return client, nil
		}

		_ = client.Close()

		logger.Get(ctx).Warn("redis ping failed", "attempt", attempt+1, "error", lastErr)

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// Store keeps the instances of one table.
type Store struct {
	client redis.UniversalClient
	table  *statemachine.Table
	prefix string
}

// NewStore creates a store for table's instances. Keys are
// "<prefix>:<table name>:<instance id>".
func NewStore(client redis.UniversalClient, table *statemachine.Table, prefix string) *Store {
	return &Store{client: client, table: table, prefix: prefix}
}

// Instance returns the instance with the given id. It is not created in
// Redis until its first write.
func (s *Store) Instance(id string) *Instance {
	return &Instance{store: s, id: id}
}

// Delete removes an instance.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + s.table.Name() + ":" + id
}

func (s *Store) fingerprint() string {
	return strconv.FormatUint(s.table.Fingerprint(), 16)
}

// Instance is a statemachine.Instance stored in a Redis hash.
type Instance struct {
	store *Store
	id    string
}

// ID returns the instance id.
func (i *Instance) ID() string {
	return i.id
}

// CurrentState implements statemachine.Instance. An instance that was never
// written has no state.
func (i *Instance) CurrentState(ctx context.Context) (statemachine.State, error) { //nolint:ireturn
	key := i.store.key(i.id)

	fields, err := i.store.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read of %s failed: %w", key, err)
	}

	name, ok := fields[fieldState]
	if !ok {
		return nil, nil //nolint:nilnil // No state yet; the table's initial state applies
	}

	if fp := fields[fieldFingerprint]; fp != i.store.fingerprint() {
		return nil, logger.AnnotateError(
			fmt.Errorf("%w: %s", ErrTableMismatch, key),
			"stored_fingerprint", fp,
			"table_fingerprint", i.store.fingerprint(),
		)
	}

	state, ok := i.store.table.State(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has state %q", ErrUnknownState, key, name)
	}

	return state, nil
}

// SetCurrentState implements statemachine.Instance.
func (i *Instance) SetCurrentState(ctx context.Context, state statemachine.State) error {
	key := i.store.key(i.id)

	err := i.store.client.HSet(ctx, key,
		fieldState, state.Name(),
		fieldFingerprint, i.store.fingerprint(),
		fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis write of %s failed: %w", key, err)
	}

	return nil
}

// UpdatedAt returns when the instance was last written, or the zero time.
func (i *Instance) UpdatedAt(ctx context.Context) (time.Time, error) {
	raw, err := i.store.client.HGet(ctx, i.store.key(i.id), fieldUpdatedAt).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}

	if err != nil {
		return time.Time{}, fmt.Errorf("redis read failed: %w", err)
	}

	return time.Parse(time.RFC3339Nano, raw)
}

var _ statemachine.Instance = (*Instance)(nil)
