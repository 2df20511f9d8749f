package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/foodaudit/backend/internal/domain/shared"
)

// Config holds retry settings for calls to external collaborators
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig returns the default retry settings
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
	}
}

// Do runs op until it succeeds, returns a permanent error, the retry limit
// is spent, or ctx is done. NOT_FOUND and VALIDATION errors are not retried.
// notify, when not nil, is called before each retry.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error, notify func(err error, attempt int)) error {
	exp := newExponential(cfg)

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, _ time.Duration) {
		if notify != nil {
			notify(err, attempt)
		}
	})
}

// Forever runs op until it succeeds or ctx is done, backing off between
// failures. cfg.MaxRetries is ignored and every error is retried.
func Forever(ctx context.Context, cfg Config, op func(ctx context.Context) error, notify func(err error, attempt int, wait time.Duration)) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		return err
	}, backoff.WithContext(newExponential(cfg), ctx), func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, attempt, wait)
		}
	})
}

func newExponential(cfg Config) *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	if cfg.InitialDelay > 0 {
		exp.InitialInterval = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		exp.MaxInterval = cfg.MaxDelay
	}
	exp.MaxElapsedTime = 0
	return exp
}

// Retryable reports whether err is worth another attempt
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch shared.ErrorCode(err) {
	case shared.CodeNotFound, shared.CodeValidation, shared.CodeInvalidInput:
		return false
	default:
		return true
	}
}
