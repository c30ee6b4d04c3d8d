// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package circuitbreaker wraps github.com/sony/gobreaker so a failing
// language-model API stops receiving requests for a cool-down period.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = gobreaker.ErrOpenState

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the circuit breaker name for logging.
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear counts.
	Interval time.Duration

	// Timeout is how long to stay open before probing again.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit.
	FailureThreshold float64

	// MinRequests is the minimum number of requests before the ratio applies.
	MinRequests uint32
}

// LLMConfig returns the breaker settings for a language-model provider.
func LLMConfig(provider string) Config {
	return Config{
		Name:             provider + "-api",
		MaxRequests:      2,
		Interval:         2 * time.Minute,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// CircuitBreaker guards calls to one external service.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a circuit breaker. Errors for which ignore returns true count
// as successes, so a malformed reply does not trip the breaker.
func New(cfg Config, ignore func(error) bool) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	if ignore != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || ignore(err)
		}
	}
	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Call runs fn through the breaker and returns its text result.
func (cb *CircuitBreaker) Call(fn func() (string, error)) (string, error) {
	out, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// IsOpen reports whether the breaker is rejecting calls.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// IsOpenErr reports whether err came from an open or saturated breaker.
func IsOpenErr(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
