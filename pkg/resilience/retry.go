package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Notify, when set, is called before each wait with the failed attempt's error.
	Notify func(err error, wait time.Duration)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Permanent marks err so Retry gives up immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op with exponential backoff until it succeeds, returns a permanent error,
// or the attempt budget is spent. Circuit-open and context errors are never retried.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		exp.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		exp.MaxInterval = cfg.MaxInterval
	}
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.2

	opts := []backoff.RetryOption{
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	}
	if cfg.Notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(cfg.Notify)))
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err != nil && isTerminal(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}

func isTerminal(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Guarded combines a shared breaker with per-call retry: every attempt asks the breaker
// first, and an open breaker ends the retry loop at once.
func Guarded[T any](ctx context.Context, b *Breaker, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	return Retry(ctx, cfg, func(ctx context.Context) (T, error) {
		var zero T
		if err := b.Allow(); err != nil {
			return zero, err
		}
		v, err := op(ctx)
		if err != nil {
			b.RecordFailure()
			return zero, err
		}
		b.RecordSuccess()
		return v, nil
	})
}
