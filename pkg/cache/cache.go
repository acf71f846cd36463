// Package cache provides pluggable byte caching for feed responses.
//
// Three backends are provided:
//   - FileCache: file-based storage for CLI usage
//   - RedisCache: Redis-backed storage for shared/long-running deployments
//   - NullCache: no-op cache for tests or when caching is disabled
//
// Values are opaque byte slices; callers handle (de)serialization. Keys
// should be namespaced by the data source (e.g. "nuget:versions:newtonsoft.json")
// to avoid collisions.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque byte values with optional per-entry expiration.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key. The second return value reports whether
	// the key was found (and not expired).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
