package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultScanBatchSize = 100
	defaultPingTimeout   = 5 * time.Second
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisCache stores JSON-encoded values under a key namespace.
// It is the shared L2 tier across service instances.
type RedisCache[V any] struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisCacheOption configures a RedisCache
type RedisCacheOption func(*redisSettings)

type redisSettings struct {
	ttl    time.Duration
	logger *zap.Logger
}

// WithRedisTTL sets the TTL used when Set is called with zero
func WithRedisTTL(ttl time.Duration) RedisCacheOption {
	return func(s *redisSettings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisCacheOption {
	return func(s *redisSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisCache creates a cache on an existing client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisCache[V any](client *redis.Client, namespace string, opts ...RedisCacheOption) *RedisCache[V] {
	settings := redisSettings{ttl: defaultTTL, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&settings)
	}
	return &RedisCache[V]{
		client:    client,
		namespace: namespace,
		ttl:       settings.ttl,
		logger:    settings.logger,
	}
}

func (c *RedisCache[V]) key(key string) string {
	return c.namespace + ":" + key
}

// Get retrieves a value from cache
func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	cacheKey := c.key(key)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss", zap.String("key", cacheKey))
		return zero, false, nil
	}
	if err != nil {
		c.logger.Error("Failed to get value from cache",
			zap.String("key", cacheKey),
			zap.Error(err))
		return zero, false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Error("Failed to unmarshal cached value",
			zap.String("key", cacheKey),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return zero, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	c.logger.Debug("Cache hit", zap.String("key", cacheKey))
	return value, true, nil
}

// GetWithTTL retrieves a value together with its remaining lifetime.
// The lifetime is zero when the key has no expiration.
func (c *RedisCache[V]) GetWithTTL(ctx context.Context, key string) (V, time.Duration, bool, error) {
	var zero V
	cacheKey := c.key(key)

	pipe := c.client.Pipeline()
	getCmd := pipe.Get(ctx, cacheKey)
	ttlCmd := pipe.PTTL(ctx, cacheKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Error("Failed to get value from cache",
			zap.String("key", cacheKey),
			zap.Error(err))
		return zero, 0, false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	data, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, 0, false, nil
	}
	if err != nil {
		return zero, 0, false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		_ = c.client.Del(ctx, cacheKey)
		return zero, 0, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return value, ttl, true, nil
}

// Set stores a value in cache
func (c *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	cacheKey := c.key(key)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set value in cache",
			zap.String("key", cacheKey),
			zap.Error(err))
		return fmt.Errorf("failed to set value in cache: %w", err)
	}

	c.logger.Debug("Cached value",
		zap.String("key", cacheKey),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes a value from cache
func (c *RedisCache[V]) Delete(ctx context.Context, key string) error {
	cacheKey := c.key(key)
	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Error("Failed to delete value from cache",
			zap.String("key", cacheKey),
			zap.Error(err))
		return fmt.Errorf("failed to delete value from cache: %w", err)
	}
	return nil
}

// Clear removes every key in the namespace
func (c *RedisCache[V]) Clear(ctx context.Context) error {
	var cursor uint64
	pattern := c.namespace + ":*"
	deleted := 0

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Cleared cache namespace",
		zap.String("namespace", c.namespace),
		zap.Int("deleted", deleted))
	return nil
}

var _ shared.Cache[int] = (*RedisCache[int])(nil)
