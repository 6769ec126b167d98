// Package cache provides the tile store behind the raster proxy.
//
// Entries are keyed by a slash-separated relative path such as
// "raster/vintage/2/1/3.png" and hold raw PNG bytes. An entry is written once,
// on the first successful response for its key, and is never invalidated,
// updated or evicted.
//
// Implementations:
//   - [DiskCache]: one file per entry under a root directory (default)
//   - [RedisCache]: one Redis string per entry, shared between instances
//   - [NullCache]: stores nothing, every lookup is a miss
package cache

import "context"

// Cache is a flat keyed byte store.
type Cache interface {
	// Get returns the stored bytes and true, or false on a miss.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. Readers never observe a partially
	// written entry.
	Set(ctx context.Context, key string, data []byte) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases resources held by the cache.
	Close() error
}
