package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/reputationx/pkg/config"
	"github.com/canopy-network/reputationx/pkg/objectstore"
)

func TestNewObjectStore(t *testing.T) {
	logger := zaptest.NewLogger(t)

	store, err := NewObjectStore(config.StorageConfig{Backend: "memory"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.Memory{}, store)

	store, err = NewObjectStore(config.StorageConfig{Backend: "s3", Bucket: "b", Region: "us-east-1"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.S3{}, store)

	_, err = NewObjectStore(config.StorageConfig{Backend: "gcs"}, logger)
	assert.ErrorContains(t, err, "unsupported storage backend")
}

func TestPortalOpts(t *testing.T) {
	opts := PortalOpts(config.PortalConfig{
		BaseURL:        "https://portal.example/api/",
		APIKey:         "k",
		AuthHeader:     "authorization",
		Timeout:        5 * time.Second,
		MaxConcurrency: 3,
		Retry:          config.RetryConfig{MaxAttempts: 4, BaseDelayMs: 100, MaxDelayMs: 2000},
	}, zaptest.NewLogger(t))

	assert.Equal(t, 3, opts.MaxConcurrency)
	assert.Equal(t, 4, opts.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, opts.Retry.BaseDelay)
	assert.Equal(t, 2*time.Second, opts.Retry.MaxDelay)
	assert.Equal(t, 0.5, opts.Retry.JitterFraction)
	require.NotNil(t, opts.Retry.Retryable)
}
