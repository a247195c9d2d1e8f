package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func testConfig() Config {
	return Config{
		MaxAttempts:    4,
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		JitterFraction: 0.5,
		Retryable:      func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestWithBackoffSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), testConfig(), zaptest.NewLogger(t), "op", func(int) error {
		calls++
		if calls <= 2 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithBackoffStopsOnTerminalError(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), testConfig(), zaptest.NewLogger(t), "op", func(int) error {
		calls++
		return errFatal
	})

	require.ErrorIs(t, err, errFatal)
	require.Equal(t, 1, calls)
}

func TestWithBackoffExhaustsAttempts(t *testing.T) {
	var seen []int
	err := WithBackoff(context.Background(), testConfig(), zaptest.NewLogger(t), "fetch", func(attempt int) error {
		seen = append(seen, attempt)
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	require.Contains(t, err.Error(), "fetch failed after 4 attempts")
	require.Equal(t, []int{0, 1, 2, 3}, seen)
}

func TestWithBackoffHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour

	calls := 0
	err := WithBackoff(ctx, cfg, nil, "op", func(int) error {
		calls++
		cancel()
		return errTransient
	})

	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 1, calls)
}

func TestBackoffIsNonDecreasingAndBounded(t *testing.T) {
	for _, jitter := range []float64{0, 0.25, 0.999} {
		j := jitter
		cfg := Config{
			BaseDelay:      100 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			JitterFraction: 0.5,
			Jitter:         func() float64 { return j },
		}

		prev := time.Duration(0)
		for attempt := 0; attempt < 12; attempt++ {
			d := cfg.Backoff(attempt)
			require.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
			require.LessOrEqual(t, d, time.Duration(float64(cfg.MaxDelay)*1.5))
			prev = d
		}
	}
}

func TestBackoffWithoutJitter(t *testing.T) {
	cfg := Config{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	require.Equal(t, 100*time.Millisecond, cfg.Backoff(0))
	require.Equal(t, 200*time.Millisecond, cfg.Backoff(1))
	require.Equal(t, 800*time.Millisecond, cfg.Backoff(3))
	require.Equal(t, time.Second, cfg.Backoff(4))
	require.Equal(t, time.Second, cfg.Backoff(60))
}

func TestClassify(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, Success, cfg.Classify(nil))
	require.Equal(t, Retryable, cfg.Classify(errTransient))
	require.Equal(t, Terminal, cfg.Classify(errFatal))
	require.Equal(t, Retryable, Config{}.Classify(errFatal))
	require.Equal(t, "terminal", Terminal.String())
}
