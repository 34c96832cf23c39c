package kv

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when a store operation is called without a key.
var ErrEmptyKey = errors.New("kv: empty key")

// Store is a byte-oriented key-value store. Implementations overwrite whole
// values; there is no partial update.
type Store interface {
	// Get returns the value for key. The boolean is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes every given key. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
