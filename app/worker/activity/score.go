package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/reputationx/app/worker/types"
	"github.com/canopy-network/reputationx/pkg/redis"
	"github.com/canopy-network/reputationx/pkg/scoring"
)

// ComputeVotingEngagement scores the snapshot's vote export.
func (c *Context) ComputeVotingEngagement(ctx context.Context, in types.SnapshotIDInput) (types.ComputeOutput, error) {
	return c.compute(ctx, scoring.AlgorithmVotingEngagement, in.SnapshotID)
}

// ComputeContributionScore scores comment activity in the snapshot database.
func (c *Context) ComputeContributionScore(ctx context.Context, in types.SnapshotIDInput) (types.ComputeOutput, error) {
	return c.compute(ctx, scoring.AlgorithmContributionScore, in.SnapshotID)
}

// ComputeProposalEngagement scores proposal outcomes in the snapshot database.
func (c *Context) ComputeProposalEngagement(ctx context.Context, in types.SnapshotIDInput) (types.ComputeOutput, error) {
	return c.compute(ctx, scoring.AlgorithmProposalEngagement, in.SnapshotID)
}

// compute reads the algorithm parameters from the snapshot record, runs the algorithm and records
// the uploaded result key on the record.
func (c *Context) compute(ctx context.Context, algorithm, snapshotID string) (types.ComputeOutput, error) {
	start := time.Now()

	rec, err := c.Snapshots.Get(ctx, snapshotID)
	if err != nil {
		return types.ComputeOutput{}, classify(fmt.Errorf("load snapshot %s: %w", snapshotID, err))
	}

	out, err := c.Scorer.Run(ctx, algorithm, scoring.Request{
		SnapshotID:  snapshotID,
		Params:      rec.AlgorithmParams.For(algorithm),
		VotesKey:    rec.VotesKey,
		DatabaseKey: rec.DatabaseKey,
	})
	if err != nil {
		return types.ComputeOutput{}, classify(fmt.Errorf("%s of %s: %w", algorithm, snapshotID, err))
	}

	if err := c.Snapshots.RecordOutput(ctx, snapshotID, algorithm, out.Key); err != nil {
		return types.ComputeOutput{}, classify(err)
	}
	c.notify(ctx, redis.Event{SnapshotID: snapshotID, Event: redis.EventScoreCompleted, Key: out.Key})

	return types.ComputeOutput{
		Algorithm:   algorithm,
		Key:         out.Key,
		Rows:        out.Rows,
		InvalidRows: out.InvalidRows,
		Skipped:     out.Skipped,
		DurationMs:  float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}
