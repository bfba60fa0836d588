package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	out, err := Retry(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBackend
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, errBackend
	})

	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 2, calls)
}

func TestRetry_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "circuit open", err: ErrCircuitOpen},
		{name: "cancelled", err: context.Canceled},
		{name: "explicit permanent", err: Permanent(errBackend)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Retry(context.Background(), fastRetry(5), func(ctx context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			require.Error(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetry_NotifyCalledBetweenAttempts(t *testing.T) {
	var notified int
	cfg := fastRetry(3)
	cfg.Notify = func(error, time.Duration) { notified++ }

	_, _ = Retry(context.Background(), cfg, func(ctx context.Context) (int, error) { return 0, errBackend })

	assert.Equal(t, 2, notified)
}

func TestGuarded_OpenBreakerShortCircuitsRetries(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour}, newFakeClock())

	calls := 0
	_, err := Guarded(context.Background(), b, fastRetry(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, errBackend
	})

	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, 2, calls, "third attempt is refused by the open breaker")
	assert.Equal(t, StateOpen, b.State())
}
