package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	out, err := WithRetry(context.Background(), fastRetryConfig(), "test", func() (*string, error) {
		calls++
		s := "ok"
		return &s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", *out)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	out, err := WithRetry(context.Background(), fastRetryConfig(), "test", func() (*string, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("status 503: backend unavailable")
		}
		s := "ok"
		return &s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", *out)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetryConfig(), "test", func() (*string, error) {
		calls++
		return nil, errors.New("status 400: bad range")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "client errors must not be retried")
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	cfg := fastRetryConfig()
	calls := 0
	_, err := WithRetry(context.Background(), cfg, "test", func() (*string, error) {
		calls++
		return nil, errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, cfg.MaxAttempts, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := WithRetry(ctx, cfg, "test", func() (*string, error) {
			return nil, errors.New("429")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe context cancellation")
	}
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second

	assert.Equal(t, 100*time.Millisecond, calculateBackoff(1, initial, max, 2.0))
	assert.Equal(t, 200*time.Millisecond, calculateBackoff(2, initial, max, 2.0))
	assert.Equal(t, max, calculateBackoff(10, initial, max, 2.0))
}
