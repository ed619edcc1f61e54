// Package retry retries idempotent backend calls with exponential backoff.
//
// Backoff for attempt n (1-based, counted from the first retry) is
// InitialBackoff * 2^(n-1), capped at MaxBackoff, plus an optional jitter that
// grows linearly with the attempt number. Context cancellation ends the loop
// immediately, including while waiting out a backoff.
//
//	err := retry.Do(ctx, cfg, func() error {
//	    return client.fetch(ctx)
//	}, retry.IsRetryable)
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/grokteam/grokteam/internal/constants"
)

// Config defines the retry behavior for exponential backoff operations.
//
// The zero value is not usable; MaxRetries and InitialBackoff must be set.
type Config struct {
	// MaxRetries is the maximum number of attempts, the first one included.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter adds randomness to backoff (0.0 to 1.0):
	//   jitter_amount = backoff * Jitter * attempt / MaxRetries
	Jitter float64
}

// DefaultConfig returns the retry policy used for conversation and health calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     constants.DefaultRetryAttempts,
		InitialBackoff: constants.DefaultRetryInitialBackoff,
		MaxBackoff:     constants.DefaultRetryMaxBackoff,
		Jitter:         0.1,
	}
}

// Once returns a config that makes exactly one attempt.
func Once() Config {
	return Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
}

// ShouldRetryFunc determines if an error should trigger a retry.
// If nil when passed to Do, all errors are retried.
type ShouldRetryFunc func(error) bool

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so IsRetryable reports false for it. A 4xx response
// is permanent: repeating the request cannot change the answer.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err is worth another attempt. Context errors
// and errors wrapped with Permanent are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p *permanentError
	return !errors.As(err, &p)
}

// Do executes fn with exponential backoff retry.
//
// fn is called up to cfg.MaxRetries times. A nil result returns immediately.
// When shouldRetry rejects an error, Do returns that error unchanged. When
// retries run out, the last error is wrapped with the attempt count.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(cfg, attempt)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// calculateBackoff computes the backoff duration for a given attempt.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(multiplier * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 {
		jitterAmount := float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries)
		backoff += time.Duration(jitterAmount)
	}

	return backoff
}
