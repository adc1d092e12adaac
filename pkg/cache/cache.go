// Package cache stores rendered tick images keyed by graph content.
//
// Rendering a tick is deterministic: the same DOT source and output format
// always produce the same image. Traces of similar matching runs repeat many
// identical states, so caching by content hash skips most renderer calls on
// reruns.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for the HTTP server or several machines
//   - [NullCache]: caching disabled
//
// # Keys
//
// Keys are built by a [Keyer]. [DefaultKeyer] hashes the DOT source together
// with the format; [ScopedKeyer] adds a namespace prefix, which lets several
// deployments share one Redis database.
package cache

import (
	"context"
	"time"
)

// TTLImage is the default lifetime of a cached tick image.
const TTLImage = 7 * 24 * time.Hour

// Cache is a byte-oriented key-value store with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
