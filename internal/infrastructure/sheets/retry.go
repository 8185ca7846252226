package sheets

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig defines retry behavior for Sheets API operations
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []string
}

// DefaultRetryConfig returns sensible defaults for retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  250 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"timeout",
			"connection refused",
			"temporary failure",
			"429", // Rate limit
			"500", // Internal server error
			"502", // Bad gateway
			"503", // Service unavailable
			"504", // Gateway timeout
		},
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc[T any] func() (*T, error)

// WithRetry executes a function with exponential backoff retry logic
func WithRetry[T any](ctx context.Context, cfg RetryConfig, operation string, fn RetryableFunc[T]) (*T, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("operation", operation).
					Int("attempt", attempt).
					Msg("operation succeeded after retry")
			}
			return result, nil
		}

		lastErr = err

		if !isRetryable(err, cfg.RetryableErrors) {
			return nil, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := calculateBackoff(attempt, cfg.InitialDelay, cfg.MaxDelay, cfg.BackoffFactor)

		log.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("retry_delay", delay).
			Msg("retrying operation after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func calculateBackoff(attempt int, initial, max time.Duration, factor float64) time.Duration {
	backoff := float64(initial) * math.Pow(factor, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	return time.Duration(backoff)
}

func isRetryable(err error, retryableErrors []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryableErrors {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
