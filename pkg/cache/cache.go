// Package cache stores computed layouts and rendered artifacts by content key.
//
// Annealing is deterministic for a fixed graph, configuration and seed, so a
// layout can be reused whenever all three match. Keys are derived by hashing
// those inputs (see [Keyer]); values are opaque bytes.
//
// Three backends are provided:
//
//   - [FileCache]: one file per entry under a local directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP service
//   - [NullCache]: stores nothing, for --no-cache
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry reports
	// false with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// DefaultDir returns the per-user cache directory, ~/.cache/graphanneal on
// Linux.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "graphanneal"), nil
}

// Entry lifetimes. Layouts are deterministic in their key, so they only
// expire to bound the cache size.
const (
	TTLLayout   = 30 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)
