package ports

import (
	"context"
)

// KVStore is the key-value persistence behind the draft store.
// Values are opaque text; keys are namespaced by the caller.
type KVStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// SetMany writes all entries. Adapters apply the batch as one unit where
	// the backend allows it, so related keys are never half-written.
	SetMany(ctx context.Context, entries map[string]string) error

	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Keys lists the stored keys that start with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
