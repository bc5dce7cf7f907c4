package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// KVStore handles plain string values.
type KVStore interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// SetStore handles unordered sets of strings.
type SetStore interface {
	// SetAdd inserts member into the set at key.
	SetAdd(ctx context.Context, key, member string) error

	// SetMembers returns all members of the set at key (empty when absent).
	SetMembers(ctx context.Context, key string) ([]string, error)
}

// MapStore handles field/value maps stored under a single key.
type MapStore interface {
	// MapPutIfAbsent sets field to value only if field is not present.
	// Returns true if the field was added.
	MapPutIfAbsent(ctx context.Context, key, field, value string) (bool, error)

	// MapDelete removes field from the map. Returns true if it was present.
	MapDelete(ctx context.Context, key, field string) (bool, error)

	// MapGetAll returns every field of the map at key (empty when absent).
	MapGetAll(ctx context.Context, key string) (map[string]string, error)
}

// CounterStore handles integer counters.
type CounterStore interface {
	// CounterIncr adds one to the counter and returns the new value.
	CounterIncr(ctx context.Context, key string) (int64, error)

	// CounterDecrFloor subtracts one unless the counter is already zero
	// and returns the resulting value.
	CounterDecrFloor(ctx context.Context, key string) (int64, error)

	// CounterGet returns the counter value, zero when absent.
	CounterGet(ctx context.Context, key string) (int64, error)
}

// ListStore handles ordered lists of strings.
type ListStore interface {
	// ListAppendUnlessLast appends value unless it equals the current last
	// element. Returns true if the value was appended.
	ListAppendUnlessLast(ctx context.Context, key, value string) (bool, error)

	// ListRange returns the whole list in append order.
	ListRange(ctx context.Context, key string) ([]string, error)
}

// Store aggregates all storage primitives. Every method is atomic on its
// own; no method is atomic together with another.
type Store interface {
	KVStore
	SetStore
	MapStore
	CounterStore
	ListStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
