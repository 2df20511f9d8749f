package threshold

import (
	"context"
	"errors"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long resolved thresholds stay cached
	DefaultTTL = 5 * time.Minute

	keyPrefix = "thresholds:"
)

var (
	errSubscriptionClosed = errors.New("threshold invalidation subscription closed")

	defaultListenRetry = retry.Config{InitialDelay: time.Second, MaxDelay: 30 * time.Second}
)

// Provider resolves pass/fail thresholds per schema. It never fails the
// caller: when the configuration store is unavailable it returns defaults.
type Provider struct {
	source      audit.ThresholdSource
	cache       shared.Cache[audit.Thresholds]
	invalidator audit.ThresholdInvalidator
	ttl         time.Duration
	defaults    audit.Thresholds
	retry       retry.Config
	listenRetry retry.Config
	logger      *zap.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithTTL sets the cache TTL
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithDefaults sets the fallback thresholds
func WithDefaults(defaults audit.Thresholds) Option {
	return func(p *Provider) {
		p.defaults = defaults
	}
}

// WithRetry sets the retry policy for configuration store reads
func WithRetry(cfg retry.Config) Option {
	return func(p *Provider) {
		p.retry = cfg
	}
}

// WithListenRetry sets the backoff used to resubscribe after the
// invalidation subscription fails
func WithListenRetry(cfg retry.Config) Option {
	return func(p *Provider) {
		p.listenRetry = cfg
	}
}

// WithInvalidator broadcasts invalidations to other instances
func WithInvalidator(invalidator audit.ThresholdInvalidator) Option {
	return func(p *Provider) {
		p.invalidator = invalidator
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates a threshold provider backed by source and cache
func NewProvider(source audit.ThresholdSource, cache shared.Cache[audit.Thresholds], opts ...Option) *Provider {
	p := &Provider{
		source:      source,
		cache:       cache,
		ttl:         DefaultTTL,
		defaults:    audit.DefaultThresholds(),
		retry:       retry.DefaultConfig(),
		listenRetry: defaultListenRetry,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetThresholds returns the thresholds of a schema.
// Fallback values are not cached so the next call tries the store again.
func (p *Provider) GetThresholds(ctx context.Context, schemaID uuid.UUID) audit.Thresholds {
	key := cacheKey(schemaID)

	if cached, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("Threshold cache read failed",
			zap.String("schema_id", schemaID.String()),
			zap.Error(err))
	} else if ok {
		return cached
	}

	var resolved audit.Thresholds
	err := retry.Do(ctx, p.retry, func(ctx context.Context) error {
		t, err := p.source.FindThresholds(ctx, schemaID)
		if err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return err
		}
		resolved = t
		return nil
	}, func(err error, attempt int) {
		p.logger.Debug("Retrying threshold fetch",
			zap.String("schema_id", schemaID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	if err != nil {
		p.logger.Warn("Threshold fetch failed, using defaults",
			zap.String("schema_id", schemaID.String()),
			zap.String("overall", p.defaults.Overall.String()),
			zap.String("section", p.defaults.Section.String()),
			zap.String("category", p.defaults.Category.String()),
			zap.Error(err))
		return p.defaults
	}

	if err := p.cache.Set(ctx, key, resolved, p.ttl); err != nil {
		p.logger.Warn("Threshold cache write failed",
			zap.String("schema_id", schemaID.String()),
			zap.Error(err))
	}
	return resolved
}

// Invalidate drops the cached thresholds of a schema here and, when an
// invalidator is configured, on every other instance.
func (p *Provider) Invalidate(ctx context.Context, schemaID uuid.UUID) error {
	if err := p.cache.Delete(ctx, cacheKey(schemaID)); err != nil {
		return err
	}
	p.logger.Info("Threshold cache invalidated", zap.String("schema_id", schemaID.String()))
	return p.publish(ctx, audit.ThresholdInvalidation{SchemaID: schemaID.String()})
}

// InvalidateAll drops every cached threshold
func (p *Provider) InvalidateAll(ctx context.Context) error {
	if err := p.cache.Clear(ctx); err != nil {
		return err
	}
	p.logger.Info("Threshold cache cleared")
	return p.publish(ctx, audit.ThresholdInvalidation{All: true})
}

// HandleInvalidation applies an invalidation received from another instance.
// It only touches the local cache and never re-publishes.
func (p *Provider) HandleInvalidation(msg audit.ThresholdInvalidation) {
	ctx := context.Background()
	if msg.All {
		if err := p.cache.Clear(ctx); err != nil {
			p.logger.Warn("Failed to apply remote threshold invalidation", zap.Error(err))
		}
		return
	}
	id, err := uuid.Parse(msg.SchemaID)
	if err != nil {
		p.logger.Warn("Ignoring threshold invalidation with bad schema id", zap.String("schema_id", msg.SchemaID))
		return
	}
	if err := p.cache.Delete(ctx, cacheKey(id)); err != nil {
		p.logger.Warn("Failed to apply remote threshold invalidation",
			zap.String("schema_id", msg.SchemaID),
			zap.Error(err))
	}
}

// Listen subscribes to remote invalidations until ctx is done, resubscribing
// with backoff whenever the subscription fails. Call it in a goroutine.
func (p *Provider) Listen(ctx context.Context) error {
	if p.invalidator == nil {
		return nil
	}
	return retry.Forever(ctx, p.listenRetry, func(ctx context.Context) error {
		if err := p.invalidator.Subscribe(ctx, p.HandleInvalidation); err != nil {
			return err
		}
		return errSubscriptionClosed
	}, func(err error, attempt int, wait time.Duration) {
		p.logger.Warn("Threshold invalidation subscription failed, resubscribing",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	})
}

func (p *Provider) publish(ctx context.Context, msg audit.ThresholdInvalidation) error {
	if p.invalidator == nil {
		return nil
	}
	msg.Timestamp = time.Now().UnixNano()
	return p.invalidator.Publish(ctx, msg)
}

func cacheKey(schemaID uuid.UUID) string {
	return keyPrefix + schemaID.String()
}
