package workflow

import (
	"time"

	"github.com/canopy-network/reputationx/app/worker/activity"
)

// SnapshotWorkflowName is the registered name of SnapshotWorkflow.
const SnapshotWorkflowName = "SnapshotWorkflow"

// Config holds the workflow configuration.
type Config struct {
	SyncTimeout     time.Duration
	ScoreTimeout    time.Duration
	MaxAttempts     int32
	InitialInterval time.Duration
}

// DefaultConfig returns the timeouts used when a field of Config is zero.
func DefaultConfig() Config {
	return Config{
		SyncTimeout:     2 * time.Hour,
		ScoreTimeout:    30 * time.Minute,
		MaxAttempts:     5,
		InitialInterval: 5 * time.Second,
	}
}

// Context holds the workflow context.
type Context struct {
	ActivityContext *activity.Context
	Config          Config
}

func (wc *Context) config() Config {
	def := DefaultConfig()
	cfg := wc.Config
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = def.SyncTimeout
	}
	if cfg.ScoreTimeout <= 0 {
		cfg.ScoreTimeout = def.ScoreTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	return cfg
}
