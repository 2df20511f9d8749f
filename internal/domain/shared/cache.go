package shared

import (
	"context"
	"time"
)

// Cache is a keyed store with per-entry expiration.
// Implementations live in infrastructure/cache.
type Cache[V any] interface {
	// Get returns the cached value and true on a hit, or the zero value and
	// false on a miss or expired entry.
	Get(ctx context.Context, key string) (V, bool, error)

	// Set stores value under key. A zero ttl means the implementation default.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all keys owned by this cache.
	Clear(ctx context.Context) error
}
