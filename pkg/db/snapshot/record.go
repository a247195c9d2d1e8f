package snapshot

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no snapshot record has the requested id.
var ErrNotFound = errors.New("snapshot: record not found")

// Status is the lifecycle state stored on a snapshot record.
type Status string

const (
	StatusSyncing   Status = "syncing"
	StatusSynced    Status = "synced"
	StatusScoring   Status = "scoring"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Algorithm names, also used as output names and result file names.
const (
	AlgorithmVotingEngagement   = "voting_engagement"
	AlgorithmContributionScore  = "contribution_score"
	AlgorithmProposalEngagement = "proposal_engagement"
)

// AlgorithmParams holds the raw parameter sets per algorithm. A nil set means the algorithm
// was not requested; an empty set requests it with defaults.
type AlgorithmParams struct {
	VotingEngagement   map[string]any `bson:"voting_engagement,omitempty" json:"voting_engagement,omitempty" yaml:"voting_engagement,omitempty"`
	ContributionScore  map[string]any `bson:"contribution_score,omitempty" json:"contribution_score,omitempty" yaml:"contribution_score,omitempty"`
	ProposalEngagement map[string]any `bson:"proposal_engagement,omitempty" json:"proposal_engagement,omitempty" yaml:"proposal_engagement,omitempty"`
}

// Requested lists the requested algorithms in execution order.
func (p AlgorithmParams) Requested() []string {
	var out []string
	if p.VotingEngagement != nil {
		out = append(out, AlgorithmVotingEngagement)
	}
	if p.ContributionScore != nil {
		out = append(out, AlgorithmContributionScore)
	}
	if p.ProposalEngagement != nil {
		out = append(out, AlgorithmProposalEngagement)
	}
	return out
}

// For returns the parameter set of the named algorithm.
func (p AlgorithmParams) For(algorithm string) map[string]any {
	switch algorithm {
	case AlgorithmVotingEngagement:
		return p.VotingEngagement
	case AlgorithmContributionScore:
		return p.ContributionScore
	case AlgorithmProposalEngagement:
		return p.ProposalEngagement
	default:
		return nil
	}
}

// Record is the snapshot document read for parameters and written for status and outputs.
type Record struct {
	ID              string            `bson:"_id" json:"id"`
	Status          Status            `bson:"status" json:"status"`
	AlgorithmParams AlgorithmParams   `bson:"algorithm_params" json:"algorithm_params"`
	VotesKey        string            `bson:"votes_key,omitempty" json:"votes_key,omitempty"`
	DatabaseKey     string            `bson:"database_key,omitempty" json:"database_key,omitempty"`
	Outputs         map[string]string `bson:"outputs,omitempty" json:"outputs,omitempty"`
	Error           string            `bson:"error,omitempty" json:"error,omitempty"`
	UpdatedAt       time.Time         `bson:"updated_at" json:"updated_at"`
}

// Store reads and updates snapshot records.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	SetStatus(ctx context.Context, id string, status Status, errMsg string) error
	SetDatabaseKey(ctx context.Context, id, key string) error
	RecordOutput(ctx context.Context, id, name, key string) error
}
