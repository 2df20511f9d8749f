package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/foodaudit/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ttlReader is implemented by tiers that report the remaining lifetime of an entry
type ttlReader[V any] interface {
	GetWithTTL(ctx context.Context, key string) (V, time.Duration, bool, error)
}

// TieredCache implements a two-tier caching strategy
// L1: local in-memory cache (fast, but local to instance)
// L2: shared cache such as Redis
// Reads go L1 then L2; writes go to both. Cross-instance L1 invalidation is
// driven by the owner of the cache through Delete/Clear.
type TieredCache[V any] struct {
	l1     shared.Cache[V]
	l2     shared.Cache[V]
	l1TTL  time.Duration
	logger *zap.Logger

	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// NewTieredCache creates a tiered cache. l1TTL caps how long L1 holds a value.
func NewTieredCache[V any](l1, l2 shared.Cache[V], l1TTL time.Duration, logger *zap.Logger) *TieredCache[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredCache[V]{l1: l1, l2: l2, l1TTL: l1TTL, logger: logger}
}

// Get retrieves a value (L1 -> L2), populating L1 on an L2 hit.
// L1 never outlives the remaining L2 lifetime when L2 can report it.
func (c *TieredCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	value, ok, err := c.l1.Get(ctx, key)
	if err != nil {
		c.logger.Warn("L1 cache error", zap.String("key", key), zap.Error(err))
	}
	if ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return value, true, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	l1TTL := c.l1TTL
	if r, isReader := c.l2.(ttlReader[V]); isReader {
		var remaining time.Duration
		value, remaining, ok, err = r.GetWithTTL(ctx, key)
		if remaining > 0 && (l1TTL <= 0 || remaining < l1TTL) {
			l1TTL = remaining
		}
	} else {
		value, ok, err = c.l2.Get(ctx, key)
	}
	if err != nil {
		var zero V
		return zero, false, err
	}
	if !ok {
		atomic.AddInt64(&c.l2Misses, 1)
		return value, false, nil
	}
	atomic.AddInt64(&c.l2Hits, 1)

	if err := c.l1.Set(ctx, key, value, l1TTL); err != nil {
		c.logger.Warn("Failed to populate L1 cache", zap.String("key", key), zap.Error(err))
	}
	return value, true, nil
}

// Set stores a value in both tiers
func (c *TieredCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	l1TTL := c.l1TTL
	if ttl > 0 && (l1TTL <= 0 || ttl < l1TTL) {
		l1TTL = ttl
	}
	if err := c.l1.Set(ctx, key, value, l1TTL); err != nil {
		c.logger.Warn("Failed to set L1 cache", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Delete removes a value from both tiers
func (c *TieredCache[V]) Delete(ctx context.Context, key string) error {
	if err := c.l2.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.l1.Delete(ctx, key); err != nil {
		c.logger.Warn("Failed to delete from L1 cache", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Clear empties both tiers
func (c *TieredCache[V]) Clear(ctx context.Context) error {
	if err := c.l2.Clear(ctx); err != nil {
		return err
	}
	return c.l1.Clear(ctx)
}

// TieredStats holds hit/miss counters per tier
type TieredStats struct {
	L1Hits   int64
	L1Misses int64
	L2Hits   int64
	L2Misses int64
}

// GetStats returns cache statistics
func (c *TieredCache[V]) GetStats() TieredStats {
	return TieredStats{
		L1Hits:   atomic.LoadInt64(&c.l1Hits),
		L1Misses: atomic.LoadInt64(&c.l1Misses),
		L2Hits:   atomic.LoadInt64(&c.l2Hits),
		L2Misses: atomic.LoadInt64(&c.l2Misses),
	}
}

var _ shared.Cache[int] = (*TieredCache[int])(nil)
