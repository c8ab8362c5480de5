// Package cache stores remesh results keyed by mesh content and options.
//
// The pipeline hashes the input mesh, derives a key from the hash and the
// remesh options with a [Keyer], and asks a [Cache] for a stored result
// before remeshing. Three backends are provided:
//
//   - [FileCache] for the CLI, one JSON file per entry
//   - [RedisCache] for the HTTP server, shared between instances
//   - [NullCache] to disable caching
package cache

import (
	"context"
	"time"
)

// Default time-to-live values for cached entries.
const (
	TTLRemesh = 7 * 24 * time.Hour
	TTLRender = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
//
// Get reports a miss with ok == false and a nil error. Errors are reserved
// for backend failures; callers treat them as misses and carry on.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
