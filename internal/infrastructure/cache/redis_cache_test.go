package cache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedisClient(RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client, mr := setupRedis(t)
	cache := NewRedisCache[audit.Thresholds](client, "thresholds")
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "schema-1")
	require.NoError(t, err)
	assert.False(t, ok)

	want := audit.Thresholds{
		Overall:  decimal.NewFromInt(85),
		Section:  decimal.RequireFromString("80.5"),
		Category: decimal.NewFromInt(75),
	}
	require.NoError(t, cache.Set(ctx, "schema-1", want, time.Minute))
	assert.True(t, mr.Exists("thresholds:schema-1"))

	got, ok, err := cache.Get(ctx, "schema-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.Section.Equal(got.Section))
	assert.True(t, want.Overall.Equal(got.Overall))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "schema-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsDropped(t *testing.T) {
	client, mr := setupRedis(t)
	cache := NewRedisCache[audit.Thresholds](client, "thresholds")
	require.NoError(t, mr.Set("thresholds:bad", "{not json"))

	_, ok, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("thresholds:bad"))
}

func TestRedisCache_ClearOnlyTouchesNamespace(t *testing.T) {
	client, mr := setupRedis(t)
	cache := NewRedisCache[int](client, "thresholds")
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, k, 1, time.Minute))
	}
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, cache.Clear(ctx))

	assert.False(t, mr.Exists("thresholds:a"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_ConnectionError(t *testing.T) {
	client, mr := setupRedis(t)
	cache := NewRedisCache[int](client, "thresholds")
	mr.Close()

	_, _, err := cache.Get(context.Background(), "a")
	assert.Error(t, err)
}

func TestTieredCache(t *testing.T) {
	client, _ := setupRedis(t)
	l1 := NewInMemoryCache[int](WithCleanupInterval(0))
	defer l1.Close()
	l2 := NewRedisCache[int](client, "tiered")
	tiered := NewTieredCache[int](l1, l2, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "k", 7, time.Minute))

	// L2 hit populates L1
	v, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, v)
	_, ok, _ = l1.Get(ctx, "k")
	assert.True(t, ok)

	_, _, _ = tiered.Get(ctx, "k")
	stats := tiered.GetStats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.L2Hits)

	require.NoError(t, tiered.Delete(ctx, "k"))
	_, ok, _ = tiered.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, tiered.Set(ctx, "x", 1, time.Minute))
	require.NoError(t, tiered.Clear(ctx))
	_, ok, _ = l2.Get(ctx, "x")
	assert.False(t, ok)
	_, ok, _ = l1.Get(ctx, "x")
	assert.False(t, ok)
}

type ttlRecordingCache struct {
	*InMemoryCache[int]
	lastTTL time.Duration
}

func (c *ttlRecordingCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	c.lastTTL = ttl
	return c.InMemoryCache.Set(ctx, key, value, ttl)
}

func TestTieredCache_L1BoundedByRemainingL2TTL(t *testing.T) {
	client, mr := setupRedis(t)
	mem := NewInMemoryCache[int](WithCleanupInterval(0))
	defer mem.Close()
	l1 := &ttlRecordingCache{InMemoryCache: mem}
	l2 := NewRedisCache[int](client, "bounded")
	tiered := NewTieredCache[int](l1, l2, 5*time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "k", 7, 5*time.Minute))
	mr.FastForward(4 * time.Minute)

	v, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Greater(t, l1.lastTTL, time.Duration(0))
	assert.LessOrEqual(t, l1.lastTTL, time.Minute)

	// no expiration in L2 keeps the L1 cap
	require.NoError(t, client.Set(ctx, "bounded:forever", "3", 0).Err())
	_, ok, err = tiered.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, l1.lastTTL)
}

func TestRedisCache_GetWithTTL(t *testing.T) {
	client, _ := setupRedis(t)
	c := NewRedisCache[int](client, "ttl")
	ctx := context.Background()

	_, _, ok, err := c.GetWithTTL(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", 4, 90*time.Second))
	v, ttl, ok, err := c.GetWithTTL(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, v)
	assert.Equal(t, 90*time.Second, ttl)
}

func TestRedisThresholdInvalidator_PublishSubscribe(t *testing.T) {
	client, _ := setupRedis(t)
	inv := NewRedisThresholdInvalidator(client, WithInvalidatorChannel("test:invalidate"))

	var (
		mu       sync.Mutex
		received []audit.ThresholdInvalidation
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- inv.Subscribe(ctx, func(msg audit.ThresholdInvalidation) {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
		})
	}()

	// wait until the subscription is registered
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, "test:invalidate").Result()
		return err == nil && n["test:invalidate"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, inv.Publish(ctx, audit.ThresholdInvalidation{SchemaID: "abc"}))
	require.NoError(t, inv.Publish(ctx, audit.ThresholdInvalidation{All: true}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "abc", received[0].SchemaID)
	assert.NotZero(t, received[0].Timestamp)
	assert.True(t, received[1].All)
	mu.Unlock()

	require.NoError(t, inv.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestRedisThresholdInvalidator_SubscribeAgainAfterFailure(t *testing.T) {
	client, mr := setupRedis(t)
	inv := NewRedisThresholdInvalidator(client, WithInvalidatorChannel("test:restart"))
	noop := func(audit.ThresholdInvalidation) {}

	mr.Close()
	failCtx, failCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer failCancel()
	require.Error(t, inv.Subscribe(failCtx, noop))

	require.NoError(t, mr.Restart())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- inv.Subscribe(ctx, noop)
	}()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, "test:restart").Result()
		return err == nil && n["test:restart"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, inv.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
}
