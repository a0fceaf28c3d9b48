package persistence

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for read operations.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry policy used by the SQL backends.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryHelper retries reads that fail with transient errors. Writes are never
// routed through it: a lost check-and-insert race must surface to the caller.
type RetryHelper struct {
	config    RetryConfig
	retryable func(error) bool
}

// NewRetryHelper builds a helper. retryable decides which errors are transient;
// a nil classifier disables retries.
func NewRetryHelper(config RetryConfig, retryable func(error) bool) *RetryHelper {
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &RetryHelper{config: config, retryable: retryable}
}

// WithRetry runs fn until it succeeds, fails permanently, or the retry budget
// is spent.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := rh.config.InitialDelay

	for attempt := 0; attempt <= rh.config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * rh.config.BackoffFactor)
			if rh.config.MaxDelay > 0 && delay > rh.config.MaxDelay {
				delay = rh.config.MaxDelay
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !rh.retryable(err) {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", rh.config.MaxRetries, lastErr)
}
