// Package store defines the durable key-value contract the session engine
// mirrors its state into, plus the key layout.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrClosed   = errors.New("store: closed")
)

// KV is a durable string-keyed blob store. Operations on different keys are
// independent; there are no transactions and no cross-key ordering.
// Concrete drivers (memory, sqlite, postgres) implement this.
type KV interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set creates or overwrites key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Migrator is implemented by drivers that own a schema.
type Migrator interface {
	ApplyMigrations() error
}

// Keys used by the token ledger and the session cache.
const (
	KeyTokens          = "auth.tokens"
	KeyRefreshFailures = "auth.refresh_failures"
	KeyLastRefreshAt   = "auth.last_refresh_at"

	// SessionPrefix groups every key owned by the session cache.
	SessionPrefix = "session."

	KeySessionState     = SessionPrefix + "state"
	KeySessionMetadata  = SessionPrefix + "metadata"
	KeySessionLifecycle = SessionPrefix + "lifecycle"
)
