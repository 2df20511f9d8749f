package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foodaudit/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultCleanupInterval = 30 * time.Second
	defaultTTL             = 5 * time.Minute
)

// InMemoryCache is a process-local TTL cache. It serves as the L1 tier in
// front of Redis and as the per-session memo for historical data.
type InMemoryCache[V any] struct {
	entries         sync.Map // map[string]*cacheEntry[V]
	ttl             time.Duration
	cleanupInterval time.Duration
	name            string
	logger          *zap.Logger
	stopCh          chan struct{}
	stopped         int32

	hits   int64
	misses int64
}

// cacheEntry wraps a cached value with expiration time
type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *cacheEntry[V]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryOption configures an InMemoryCache
type InMemoryOption func(*inMemorySettings)

type inMemorySettings struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	name            string
	logger          *zap.Logger
}

// WithDefaultTTL sets the TTL used when Set is called with zero
func WithDefaultTTL(ttl time.Duration) InMemoryOption {
	return func(s *inMemorySettings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are purged.
// Zero disables the background goroutine.
func WithCleanupInterval(interval time.Duration) InMemoryOption {
	return func(s *inMemorySettings) {
		s.cleanupInterval = interval
	}
}

// WithName labels log lines of this cache
func WithName(name string) InMemoryOption {
	return func(s *inMemorySettings) {
		s.name = name
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryOption {
	return func(s *inMemorySettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache[V any](opts ...InMemoryOption) *InMemoryCache[V] {
	settings := inMemorySettings{
		ttl:             defaultTTL,
		cleanupInterval: defaultCleanupInterval,
		name:            "memory",
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	c := &InMemoryCache[V]{
		ttl:             settings.ttl,
		cleanupInterval: settings.cleanupInterval,
		name:            settings.name,
		logger:          settings.logger,
		stopCh:          make(chan struct{}),
	}
	if c.cleanupInterval > 0 {
		go c.cleanupExpired()
	}
	return c
}

// Get retrieves a value from cache
func (c *InMemoryCache[V]) Get(_ context.Context, key string) (V, bool, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry[V])
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Cache hit", zap.String("cache", c.name), zap.String("key", key))
			return entry.value, true, nil
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Cache miss", zap.String("cache", c.name), zap.String("key", key))
	var zero V
	return zero, false, nil
}

// Set stores a value in cache
func (c *InMemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.entries.Store(key, &cacheEntry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a value from cache
func (c *InMemoryCache[V]) Delete(_ context.Context, key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear removes every entry
func (c *InMemoryCache[V]) Clear(_ context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Debug("Cache cleared", zap.String("cache", c.name))
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryCache[V]) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryCache[V]) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries, expired ones included
func (c *InMemoryCache[V]) Count() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *InMemoryCache[V]) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *InMemoryCache[V]) purgeExpired() {
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[V]).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Purged expired cache entries",
			zap.String("cache", c.name),
			zap.Int("removed", removed))
	}
}

var _ shared.Cache[int] = (*InMemoryCache[int])(nil)
