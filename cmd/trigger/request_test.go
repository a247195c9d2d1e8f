package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/reputationx/pkg/ingest"
	"github.com/canopy-network/reputationx/pkg/scoring"
)

const validRequest = `
snapshot_id: " 2024-q3 "
votes_key: exports/2024-q3.csv
algorithm_params:
  voting_engagement: {}
  contribution_score:
    base_score: 1
    upvote_weight: 2
    downvote_weight: 1
    self_interaction_penalty_factor: 0.5
    owner_upvote_bonus_multiplier: 1.5
    engagement_window_months: 12
    monthly_decay_rate: 10
    decay_bucket_size_months: 3
`

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest(strings.NewReader(validRequest))
	require.NoError(t, err)

	assert.Equal(t, "2024-q3", req.SnapshotID)
	assert.Equal(t, []string{scoring.AlgorithmVotingEngagement, scoring.AlgorithmContributionScore},
		req.AlgorithmParams.Requested())

	rec := req.record()
	assert.Equal(t, "2024-q3", rec.ID)
	assert.Equal(t, "exports/2024-q3.csv", rec.VotesKey)
	assert.Equal(t, 2, rec.AlgorithmParams.ContributionScore["upvote_weight"])
}

func TestDecodeRequest_Rejects(t *testing.T) {
	_, err := decodeRequest(strings.NewReader("snapshot_id: a/b\n"))
	assert.True(t, errors.Is(err, ingest.ErrInvalidSnapshotID))

	_, err = decodeRequest(strings.NewReader("snapshot_id: s\nunknown: 1\n"))
	assert.ErrorContains(t, err, "decode request")

	_, err = decodeRequest(strings.NewReader("snapshot_id: s\nalgorithm_params:\n  proposal_engagement:\n    funded_weight: 1\n"))
	var pe *scoring.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "unfunded_weight", pe.Param)
}
