package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/canopy-network/reputationx/app/worker/activity"
	"github.com/canopy-network/reputationx/app/worker/types"
	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/scoring"
)

// SnapshotWorkflow syncs a snapshot and runs the scoring algorithms its record requests.
//
// Status moves syncing -> synced -> scoring -> completed. Any failure sets the record to failed
// with the error message and fails the workflow with the original error.
func (wc *Context) SnapshotWorkflow(ctx workflow.Context, in types.SnapshotInput) (out types.SnapshotOutput, err error) {
	cfg := wc.config()
	logger := workflow.GetLogger(ctx)
	out = types.SnapshotOutput{SnapshotID: in.SnapshotID, Outputs: map[string]string{}}

	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	})
	setStatus := func(status snapshot.Status, msg string) error {
		return workflow.ExecuteActivity(statusCtx, wc.ActivityContext.UpdateSnapshotStatus, types.UpdateStatusInput{
			SnapshotID: in.SnapshotID,
			Status:     status,
			Error:      msg,
		}).Get(statusCtx, nil)
	}

	defer func() {
		if err == nil {
			return
		}
		// Record the failure even when the workflow itself was cancelled.
		failCtx, _ := workflow.NewDisconnectedContext(statusCtx)
		failErr := workflow.ExecuteActivity(failCtx, wc.ActivityContext.UpdateSnapshotStatus, types.UpdateStatusInput{
			SnapshotID: in.SnapshotID,
			Status:     snapshot.StatusFailed,
			Error:      err.Error(),
		}).Get(failCtx, nil)
		if failErr != nil {
			logger.Error("Unable to record snapshot failure", "snapshot_id", in.SnapshotID, "error", failErr)
		}
	}()

	if in.SnapshotID == "" {
		return out, temporal.NewNonRetryableApplicationError("snapshot id is required", activity.ErrTypeValidation, nil)
	}

	retry := &temporal.RetryPolicy{
		InitialInterval:    cfg.InitialInterval,
		BackoffCoefficient: 2,
		MaximumInterval:    5 * time.Minute,
		MaximumAttempts:    cfg.MaxAttempts,
	}

	// 1. Load the record: requested algorithms, and fail fast when it doesn't exist.
	algorithms := in.Algorithms
	if len(algorithms) == 0 {
		var loadOut types.LoadSnapshotOutput
		if err = workflow.ExecuteActivity(statusCtx, wc.ActivityContext.LoadSnapshot, types.SnapshotIDInput{
			SnapshotID: in.SnapshotID,
		}).Get(statusCtx, &loadOut); err != nil {
			return out, err
		}
		algorithms = loadOut.Algorithms
	}

	// 2. Sync
	if err = setStatus(snapshot.StatusSyncing, ""); err != nil {
		return out, err
	}
	syncCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: cfg.SyncTimeout,
		RetryPolicy:         retry,
	})
	var syncOut types.SyncSnapshotOutput
	if err = workflow.ExecuteActivity(syncCtx, wc.ActivityContext.SyncSnapshot, types.SnapshotIDInput{
		SnapshotID: in.SnapshotID,
	}).Get(syncCtx, &syncOut); err != nil {
		return out, err
	}
	out.DatabaseKey = syncOut.DatabaseKey
	out.SyncSkipped = syncOut.Skipped
	if err = setStatus(snapshot.StatusSynced, ""); err != nil {
		return out, err
	}

	// 3. Score, all requested algorithms in parallel
	if len(algorithms) > 0 {
		if err = setStatus(snapshot.StatusScoring, ""); err != nil {
			return out, err
		}
		scoreCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: cfg.ScoreTimeout,
			RetryPolicy:         retry,
		})
		futures := make([]workflow.Future, 0, len(algorithms))
		for _, name := range algorithms {
			fn, ferr := wc.computeActivity(name)
			if ferr != nil {
				err = ferr
				return out, err
			}
			futures = append(futures, workflow.ExecuteActivity(scoreCtx, fn, types.SnapshotIDInput{SnapshotID: in.SnapshotID}))
		}
		for i, f := range futures {
			var computeOut types.ComputeOutput
			if err = f.Get(scoreCtx, &computeOut); err != nil {
				return out, fmt.Errorf("%s: %w", algorithms[i], err)
			}
			out.Outputs[computeOut.Algorithm] = computeOut.Key
		}
	}

	// 4. Done
	if err = setStatus(snapshot.StatusCompleted, ""); err != nil {
		return out, err
	}
	logger.Info("Snapshot completed", "snapshot_id", in.SnapshotID, "outputs", len(out.Outputs))
	return out, nil
}

func (wc *Context) computeActivity(name string) (any, error) {
	switch name {
	case scoring.AlgorithmVotingEngagement:
		return wc.ActivityContext.ComputeVotingEngagement, nil
	case scoring.AlgorithmContributionScore:
		return wc.ActivityContext.ComputeContributionScore, nil
	case scoring.AlgorithmProposalEngagement:
		return wc.ActivityContext.ComputeProposalEngagement, nil
	default:
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unknown algorithm %q", name), activity.ErrTypeValidation, nil)
	}
}
