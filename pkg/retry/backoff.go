package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Outcome is the classification of a single attempt.
type Outcome int

const (
	Success Outcome = iota
	Retryable
	Terminal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// Config defines retry behavior.
//
// Delay before retry k (0-indexed) is min(BaseDelay*2^k, MaxDelay) plus a random jitter of up to
// JitterFraction of that value. MaxAttempts counts every call to fn, the first one included.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64

	// Retryable decides whether a failed attempt may be retried. nil retries every error.
	Retryable func(error) bool
	// Jitter returns a value in [0,1). nil uses math/rand.
	Jitter func() float64
}

// DefaultConfig returns the policy used for portal API calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.5,
	}
}

// Classify maps an attempt error to an Outcome using cfg.Retryable.
func (cfg Config) Classify(err error) Outcome {
	if err == nil {
		return Success
	}
	if cfg.Retryable == nil || cfg.Retryable(err) {
		return Retryable
	}
	return Terminal
}

// Backoff returns the delay to wait after the failed attempt with the given 0-based index.
func (cfg Config) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.JitterFraction > 0 {
		j := cfg.Jitter
		if j == nil {
			j = rand.Float64
		}
		delay += j() * cfg.JitterFraction * delay
	}

	return time.Duration(delay)
}

// WithBackoff runs fn until it succeeds, returns a terminal error, or MaxAttempts is reached.
// fn receives the 0-based attempt number. Terminal errors are returned unchanged; an exhausted
// budget returns the last error wrapped with the attempt count.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func(attempt int) error) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry cancelled: %w", errors.Join(err, lastErr))
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn(attempt)
		switch cfg.Classify(lastErr) {
		case Success:
			if attempt > 0 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt+1))
			}
			return nil
		case Terminal:
			return lastErr
		}

		if attempt == maxAttempts-1 {
			break
		}

		delay := cfg.Backoff(attempt)
		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), lastErr))
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxAttempts, lastErr)
}
