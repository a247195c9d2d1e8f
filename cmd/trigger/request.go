package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/ingest"
	"github.com/canopy-network/reputationx/pkg/scoring"
)

// request is the YAML document describing one snapshot run:
//
//	snapshot_id: 2024-q3
//	votes_key: exports/2024-q3-votes.csv
//	algorithm_params:
//	  voting_engagement: {}
//	  contribution_score:
//	    base_score: 1
//	    ...
type request struct {
	SnapshotID      string                   `yaml:"snapshot_id"`
	VotesKey        string                   `yaml:"votes_key"`
	AlgorithmParams snapshot.AlgorithmParams `yaml:"algorithm_params"`
}

func decodeRequest(r io.Reader) (*request, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var req request
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	req.SnapshotID = strings.TrimSpace(req.SnapshotID)
	if err := ingest.ValidateSnapshotID(req.SnapshotID); err != nil {
		return nil, err
	}
	if err := validateParams(req.AlgorithmParams); err != nil {
		return nil, err
	}
	return &req, nil
}

// validateParams rejects bad parameter sets before anything is written or started.
func validateParams(p snapshot.AlgorithmParams) error {
	if p.VotingEngagement != nil {
		if _, err := scoring.ParseVotingParams(p.VotingEngagement); err != nil {
			return err
		}
	}
	if p.ContributionScore != nil {
		if _, err := scoring.ParseContributionParams(p.ContributionScore, timeNow()); err != nil {
			return err
		}
	}
	if p.ProposalEngagement != nil {
		if _, err := scoring.ParseProposalEngagementParams(p.ProposalEngagement, timeNow()); err != nil {
			return err
		}
	}
	return nil
}

func (r *request) record() *snapshot.Record {
	return &snapshot.Record{
		ID:              r.SnapshotID,
		AlgorithmParams: r.AlgorithmParams,
		VotesKey:        r.VotesKey,
	}
}
