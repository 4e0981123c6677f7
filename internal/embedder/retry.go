package embedder

import (
	"context"
	"errors"
	"time"
)

// Retry defaults
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// RetryConfig configures linear backoff: the wait after attempt n is n*BaseDelay, capped at MaxDelay
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first
	BaseDelay   time.Duration // Delay unit multiplied by the attempt number
	MaxDelay    time.Duration // Upper bound on a single wait
}

// DefaultRetryConfig returns the provider retry policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := time.Duration(attempt) * c.BaseDelay
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// retryable reports whether another attempt could succeed. A wrong-sized
// vector is a model configuration problem and will not fix itself.
func retryable(err error) bool {
	return !errors.Is(err, ErrDimensionMismatch) && !errors.Is(err, ErrInvalidInput)
}

// retryWithBackoff runs fn until it succeeds, returns a non-retryable error or
// the attempts run out. onFailure is called after each failed attempt.
// Returns the result, the number of attempts made and the last error.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, onFailure func(attempt int, err error), fn func(ctx context.Context) (T, error)) (T, int, error) {
	var lastErr error
	var zero T

	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt, nil
		}

		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}

		// Don't retry on caller cancellation
		if ctx.Err() != nil {
			return zero, attempt, ctx.Err()
		}

		if !retryable(err) {
			return zero, attempt, err
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return zero, attempt, ctx.Err()
			case <-time.After(config.delay(attempt)):
			}
		}
	}

	return zero, attempts, lastErr
}
