package activity

import (
	"context"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/ingest"
	"github.com/canopy-network/reputationx/pkg/redis"
	"github.com/canopy-network/reputationx/pkg/scoring"
)

// Syncer copies one snapshot of the portal into durable storage.
type Syncer interface {
	Sync(ctx context.Context, snapshotID string) (*ingest.Result, error)
}

// Scorer runs one scoring algorithm against a synced snapshot.
type Scorer interface {
	Run(ctx context.Context, algorithm string, req scoring.Request) (*scoring.Output, error)
}

type Context struct {
	Logger *zap.Logger
	// Portal ingestion and scoring
	Syncer Syncer
	Scorer Scorer
	// Snapshot records (parameters, status, outputs)
	Snapshots snapshot.Store
	// For publishing real-time events; nil disables them
	Notifier redis.Notifier
}

func (c *Context) notify(ctx context.Context, ev redis.Event) {
	if c.Notifier == nil {
		return
	}
	c.Notifier.Notify(ctx, ev)
}
