package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired
var ErrNotFound = errors.New("repository: not found")

// DefaultListLimit bounds prefix scans when the caller passes no limit
const DefaultListLimit = 10000

// KVStore is the generic key-value store all durable state lives in.
// It offers no transactions and no compare-and-swap.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	// Put stores value under key; ttl 0 means the entry never expires
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete is idempotent
	Delete(ctx context.Context, key string) error
	// List returns live keys with the given prefix in lexical order
	List(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Purger drops expired entries in bulk
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
