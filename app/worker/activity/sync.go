package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/app/worker/types"
	"github.com/canopy-network/reputationx/pkg/redis"
)

// SyncSnapshot ingests the portal into the snapshot's database object and records its key.
// A snapshot that already has a manifest is not fetched again.
func (c *Context) SyncSnapshot(ctx context.Context, in types.SnapshotIDInput) (types.SyncSnapshotOutput, error) {
	start := time.Now()

	res, err := c.Syncer.Sync(ctx, in.SnapshotID)
	if err != nil {
		c.Logger.Error("Snapshot sync failed", zap.String("snapshot_id", in.SnapshotID), zap.Error(err))
		return types.SyncSnapshotOutput{}, classify(err)
	}

	if err := c.Snapshots.SetDatabaseKey(ctx, in.SnapshotID, res.DatabaseKey); err != nil {
		return types.SyncSnapshotOutput{}, classify(err)
	}

	event := redis.EventSyncCompleted
	if res.Skipped {
		event = redis.EventSyncSkipped
	}
	c.notify(ctx, redis.Event{SnapshotID: in.SnapshotID, Event: event, Key: res.DatabaseKey})

	return types.SyncSnapshotOutput{
		DatabaseKey: res.DatabaseKey,
		ManifestKey: res.ManifestKey,
		Skipped:     res.Skipped,
		Counts:      res.Counts,
		DurationMs:  float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}
