package core

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by KVStore.Get for absent or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is a keyed store with per-entry expiry. It backs the short-lived
// verification codes (password reset, email confirmation, 2FA). Setting an
// existing key overwrites its previous value (last-write-wins).
type KVStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrKeyNotFound for a key that is absent or has expired.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
