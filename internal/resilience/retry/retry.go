// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry provides retry logic with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff.
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0).
	JitterFraction float64
}

// AIAPIConfig returns configuration for language-model calls: three
// attempts with a short backoff, since each call is billed.
func AIAPIConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   2 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Notify is called before each retry with the failed attempt number and its error.
type Notify func(attempt int, err error)

// WithBackoff runs fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. It returns nil on success and otherwise
// the last error.
func WithBackoff(ctx context.Context, cfg Config, fn func(ctx context.Context) error, notify Notify) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		// The caller's context ending is never a transient failure.
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if notify != nil {
			notify(attempt, lastErr)
		}
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		delay = addJitter(delay, cfg.JitterFraction)
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so IsRetryable reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err is a transient failure: a per-attempt
// timeout, a transport error, or an HTTP 408, 429 or 5xx response.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500 && httpErr.StatusCode < 600:
			return true
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// addJitter adds random jitter to a duration.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
