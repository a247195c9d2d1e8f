package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/app/worker/types"
	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/redis"
)

// LoadSnapshot reads the snapshot record and reports which algorithms it requests.
func (c *Context) LoadSnapshot(ctx context.Context, in types.SnapshotIDInput) (types.LoadSnapshotOutput, error) {
	rec, err := c.Snapshots.Get(ctx, in.SnapshotID)
	if err != nil {
		return types.LoadSnapshotOutput{}, classify(fmt.Errorf("load snapshot %s: %w", in.SnapshotID, err))
	}
	return types.LoadSnapshotOutput{Algorithms: rec.AlgorithmParams.Requested()}, nil
}

// UpdateSnapshotStatus records a status transition. A failed status is also published.
func (c *Context) UpdateSnapshotStatus(ctx context.Context, in types.UpdateStatusInput) error {
	if err := c.Snapshots.SetStatus(ctx, in.SnapshotID, in.Status, in.Error); err != nil {
		return classify(fmt.Errorf("set status %s of %s: %w", in.Status, in.SnapshotID, err))
	}
	c.Logger.Info("Snapshot status updated",
		zap.String("snapshot_id", in.SnapshotID),
		zap.String("status", string(in.Status)),
		zap.String("error", in.Error))

	if in.Status == snapshot.StatusFailed {
		c.notify(ctx, redis.Event{SnapshotID: in.SnapshotID, Event: redis.EventFailed, Error: in.Error})
	}
	return nil
}
