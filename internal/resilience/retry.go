package resilience

import (
	"context"

	"go.uber.org/zap"
)

// RetryConfig controls how many times an operation is attempted. Attempts
// run back to back.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// ShouldRetry decides whether an error is worth another attempt.
	// If nil, every error is retried.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry with attempt number and error.
	OnRetry func(attempt int, err error)
}

// ImmediateRetryConfig returns a config that makes up to maxAttempts attempts
// back to back and retries every error.
func ImmediateRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		ShouldRetry: RetryAll,
	}
}

// RetryAll treats every error as retryable.
func RetryAll(err error) bool {
	return err != nil
}

// Do executes fn until it succeeds, the attempts are exhausted, the error is
// not retryable, or ctx is done. It returns the last error, or nil.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = RetryAll
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context cancellation.
		if ctx.Err() != nil {
			return lastErr
		}

		if attempt == cfg.MaxAttempts || !shouldRetry(lastErr) {
			return lastErr
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}
	}

	return lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt at
// debug level.
func RetryLogger(service, operation string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Debug("retrying operation",
			append([]zap.Field{
				zap.String("service", service),
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			}, fields...)...,
		)
	}
}
