package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCloseTimeout = 5 * time.Second

	// DefaultInvalidationChannel is the Pub/Sub channel for threshold invalidations
	DefaultInvalidationChannel = "audit:thresholds:invalidate"
)

// RedisThresholdInvalidator implements audit.ThresholdInvalidator using Redis Pub/Sub
type RedisThresholdInvalidator struct {
	client    *redis.Client
	channel   string
	logger    *zap.Logger
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	mu        sync.Mutex
	isRunning bool
}

// RedisThresholdInvalidatorOption is a functional option for configuring the invalidator
type RedisThresholdInvalidatorOption func(*RedisThresholdInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisThresholdInvalidatorOption {
	return func(i *RedisThresholdInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisThresholdInvalidatorOption {
	return func(i *RedisThresholdInvalidator) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewRedisThresholdInvalidator creates an invalidator on an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisThresholdInvalidator(client *redis.Client, opts ...RedisThresholdInvalidatorOption) *RedisThresholdInvalidator {
	i := &RedisThresholdInvalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish sends an invalidation to all subscribers
func (i *RedisThresholdInvalidator) Publish(ctx context.Context, msg audit.ThresholdInvalidation) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish threshold invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	i.logger.Debug("Published threshold invalidation",
		zap.String("schema_id", msg.SchemaID),
		zap.Bool("all", msg.All),
		zap.String("channel", i.channel))
	return nil
}

// Subscribe listens for invalidations and blocks until ctx is done or the
// subscription fails. It may be called again after it returns.
// The callback runs synchronously in the receive loop.
func (i *RedisThresholdInvalidator) Subscribe(ctx context.Context, callback func(msg audit.ThresholdInvalidation)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	i.cancelFn = cancel
	i.doneCh = done
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		close(done)
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("Subscribed to threshold invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Threshold invalidation subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Threshold invalidation channel closed")
				return fmt.Errorf("invalidation channel %s closed", i.channel)
			}

			var inv audit.ThresholdInvalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				i.logger.Error("Failed to unmarshal threshold invalidation",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			i.dispatch(callback, inv)
		}
	}
}

func (i *RedisThresholdInvalidator) dispatch(callback func(audit.ThresholdInvalidation), msg audit.ThresholdInvalidation) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Panic in threshold invalidation callback", zap.Any("panic", r))
		}
	}()
	callback(msg)
}

// Close stops a running subscription
func (i *RedisThresholdInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	done := i.doneCh
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-done:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for subscription to stop")
		}
	}
	return nil
}

var _ audit.ThresholdInvalidator = (*RedisThresholdInvalidator)(nil)
