// Package store defines the key/value capability consumed by stockpile.
//
// A Store is one logical database: an independent keyspace with its own
// connections. Implementations MUST be byte-for-byte transparent: Get must
// return exactly the []byte previously passed to SetEX/SetNX for a key.
//
// Important: keys prefixed with "stockpile_lock::" are owned by stockpile and
// hold lock markers. External code MUST NOT write under that prefix.
package store

import (
	"context"
	"time"
)

// NoExpiry is returned by TTL for keys that exist without an expiration.
const NoExpiry time.Duration = -1

// Store is the minimal set of atomic operations the cache and its lock need.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetEX stores value and its TTL in a single atomic operation, so the key
	// never exists without an expiration.
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value with ttl only if key is absent.
	// Reports whether the write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Expire resets the TTL of key. ttl <= 0 expires the key immediately.
	// Reports whether the key existed when the call was made.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining time to live. ok=false when the key is absent;
	// NoExpiry when it exists without an expiration.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Close releases resources.
	Close(ctx context.Context) error
}
