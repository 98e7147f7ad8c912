// Package retry runs an operation again with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/portal-admin/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether an error is worth another attempt; nil retries every error
	Retryable func(err error) bool
}

// DefaultConfig returns the backoff used for outbound mail: 500ms, 1s, 2s
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Result describes a finished retry loop
type Result struct {
	Attempts      int
	Success       bool
	TotalDuration time.Duration
	LastError     error
}

// Func is one attempt; attempt starts at 1
type Func func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx ends
func Do(ctx context.Context, cfg *Config, fn Func) *Result {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := logging.FromContext(ctx)
	start := time.Now()
	result := &Result{}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = time.Since(start)
			if attempt > 1 {
				logger.WithField("attempts", attempt).Info("operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			break
		}
		if attempt == cfg.MaxAttempts {
			logger.WithField("attempts", attempt).WithError(err).Warn("operation failed after max retry attempts")
			break
		}

		delay := Backoff(cfg, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
		}).WithError(err).Debug("operation failed, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// Backoff returns the wait after the given failed attempt:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay
func Backoff(cfg *Config, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// WithRetry runs fn with cfg and folds the result into an error
func WithRetry(ctx context.Context, cfg *Config, fn Func) error {
	result := Do(ctx, cfg, fn)
	if !result.Success {
		return fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
	}
	return nil
}
