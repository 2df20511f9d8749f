package threshold

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/cache"
	"github.com/foodaudit/backend/internal/infrastructure/retry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockThresholdSource is a mock implementation of audit.ThresholdSource
type MockThresholdSource struct {
	mock.Mock
}

func (m *MockThresholdSource) FindThresholds(ctx context.Context, schemaID uuid.UUID) (audit.Thresholds, error) {
	args := m.Called(ctx, schemaID)
	return args.Get(0).(audit.Thresholds), args.Error(1)
}

var _ audit.ThresholdSource = (*MockThresholdSource)(nil)

// MockInvalidator is a mock implementation of audit.ThresholdInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Publish(ctx context.Context, msg audit.ThresholdInvalidation) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockInvalidator) Subscribe(ctx context.Context, callback func(msg audit.ThresholdInvalidation)) error {
	args := m.Called(ctx, callback)
	return args.Error(0)
}

func (m *MockInvalidator) Close() error {
	return m.Called().Error(0)
}

var _ audit.ThresholdInvalidator = (*MockInvalidator)(nil)

func customThresholds() audit.Thresholds {
	return audit.Thresholds{
		Overall:  decimal.NewFromInt(90),
		Section:  decimal.NewFromInt(80),
		Category: decimal.NewFromInt(70),
	}
}

func noRetry() retry.Config {
	return retry.Config{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func newTestProvider(t *testing.T, source audit.ThresholdSource, opts ...Option) (*Provider, *cache.InMemoryCache[audit.Thresholds]) {
	t.Helper()
	c := cache.NewInMemoryCache[audit.Thresholds](cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = c.Close() })
	return NewProvider(source, c, append([]Option{WithRetry(noRetry())}, opts...)...), c
}

func TestProvider_FetchesAndCaches(t *testing.T) {
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).Return(customThresholds(), nil).Once()

	p, _ := newTestProvider(t, source)
	ctx := context.Background()

	first := p.GetThresholds(ctx, schemaID)
	second := p.GetThresholds(ctx, schemaID)

	assert.True(t, first.Overall.Equal(decimal.NewFromInt(90)))
	assert.True(t, second.Category.Equal(decimal.NewFromInt(70)))
	source.AssertNumberOfCalls(t, "FindThresholds", 1)
}

func TestProvider_FallsBackToDefaultsOnFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).
		Return(audit.Thresholds{}, errors.New("connection refused"))

	p, c := newTestProvider(t, source, WithLogger(zap.New(core)))

	got := p.GetThresholds(context.Background(), schemaID)

	want := decimal.NewFromInt(83)
	assert.True(t, got.Overall.Equal(want))
	assert.True(t, got.Section.Equal(want))
	assert.True(t, got.Category.Equal(want))
	assert.Equal(t, 0, c.Count(), "fallback values must not be cached")
	assert.Equal(t, 1, logs.FilterMessage("Threshold fetch failed, using defaults").Len())
}

func TestProvider_RetriesTransientFailures(t *testing.T) {
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).
		Return(audit.Thresholds{}, errors.New("timeout")).Once()
	source.On("FindThresholds", mock.Anything, schemaID).
		Return(customThresholds(), nil).Once()

	p, _ := newTestProvider(t, source,
		WithRetry(retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}))

	got := p.GetThresholds(context.Background(), schemaID)

	assert.True(t, got.Overall.Equal(decimal.NewFromInt(90)))
	source.AssertNumberOfCalls(t, "FindThresholds", 2)
}

func TestProvider_NotFoundUsesDefaultsWithoutRetry(t *testing.T) {
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).Return(audit.Thresholds{}, shared.ErrNotFound)

	p, _ := newTestProvider(t, source,
		WithRetry(retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}))

	got := p.GetThresholds(context.Background(), schemaID)

	assert.True(t, got.Overall.Equal(decimal.NewFromInt(83)))
	source.AssertNumberOfCalls(t, "FindThresholds", 1)
}

func TestProvider_InvalidStoredValuesUseDefaults(t *testing.T) {
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	bad := customThresholds()
	bad.Overall = decimal.NewFromInt(150)
	source.On("FindThresholds", mock.Anything, schemaID).Return(bad, nil)

	p, _ := newTestProvider(t, source)

	got := p.GetThresholds(context.Background(), schemaID)
	assert.True(t, got.Overall.Equal(decimal.NewFromInt(83)))
}

func TestProvider_CustomDefaults(t *testing.T) {
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).Return(audit.Thresholds{}, errors.New("down"))

	p, _ := newTestProvider(t, source, WithDefaults(customThresholds()))

	got := p.GetThresholds(context.Background(), schemaID)
	assert.True(t, got.Overall.Equal(decimal.NewFromInt(90)))
}

func TestProvider_Invalidate(t *testing.T) {
	source := new(MockThresholdSource)
	invalidator := new(MockInvalidator)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).Return(customThresholds(), nil)
	invalidator.On("Publish", mock.Anything, mock.MatchedBy(func(msg audit.ThresholdInvalidation) bool {
		return msg.SchemaID == schemaID.String() && !msg.All && msg.Timestamp > 0
	})).Return(nil).Once()

	p, _ := newTestProvider(t, source, WithInvalidator(invalidator))
	ctx := context.Background()

	p.GetThresholds(ctx, schemaID)
	require.NoError(t, p.Invalidate(ctx, schemaID))
	p.GetThresholds(ctx, schemaID)

	source.AssertNumberOfCalls(t, "FindThresholds", 2)
	invalidator.AssertExpectations(t)
}

func TestProvider_InvalidateAll(t *testing.T) {
	source := new(MockThresholdSource)
	a, b := uuid.New(), uuid.New()
	source.On("FindThresholds", mock.Anything, mock.Anything).Return(customThresholds(), nil)

	p, c := newTestProvider(t, source)
	ctx := context.Background()

	p.GetThresholds(ctx, a)
	p.GetThresholds(ctx, b)
	assert.Equal(t, 2, c.Count())

	require.NoError(t, p.InvalidateAll(ctx))
	assert.Equal(t, 0, c.Count())
}

func TestProvider_HandleInvalidation(t *testing.T) {
	source := new(MockThresholdSource)
	schemaID := uuid.New()
	source.On("FindThresholds", mock.Anything, schemaID).Return(customThresholds(), nil)

	p, c := newTestProvider(t, source)
	p.GetThresholds(context.Background(), schemaID)
	require.Equal(t, 1, c.Count())

	p.HandleInvalidation(audit.ThresholdInvalidation{SchemaID: "not-a-uuid"})
	assert.Equal(t, 1, c.Count())

	p.HandleInvalidation(audit.ThresholdInvalidation{SchemaID: schemaID.String()})
	assert.Equal(t, 0, c.Count())

	p.GetThresholds(context.Background(), schemaID)
	p.HandleInvalidation(audit.ThresholdInvalidation{All: true})
	assert.Equal(t, 0, c.Count())
}

func TestProvider_ListenWithoutInvalidator(t *testing.T) {
	p, _ := newTestProvider(t, new(MockThresholdSource))
	assert.NoError(t, p.Listen(context.Background()))
}

func TestProvider_ListenResubscribesAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invalidator := new(MockInvalidator)
	invalidator.On("Subscribe", mock.Anything, mock.Anything).Return(errors.New("dial tcp: connection refused")).Twice()
	invalidator.On("Subscribe", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(context.Canceled).Once()

	listenRetry := retry.Config{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	p, _ := newTestProvider(t, new(MockThresholdSource), WithInvalidator(invalidator), WithListenRetry(listenRetry))

	err := p.Listen(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	invalidator.AssertNumberOfCalls(t, "Subscribe", 3)
}
