package scoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/db/sqlite"
	"github.com/canopy-network/reputationx/pkg/objectstore"
)

// Algorithm names double as result file names.
const (
	AlgorithmVotingEngagement   = snapshot.AlgorithmVotingEngagement
	AlgorithmContributionScore  = snapshot.AlgorithmContributionScore
	AlgorithmProposalEngagement = snapshot.AlgorithmProposalEngagement
)

// ErrUnknownAlgorithm is returned by Run for names it does not score.
var ErrUnknownAlgorithm = errors.New("scoring: unknown algorithm")

// Request names the snapshot inputs for one scoring call.
type Request struct {
	SnapshotID string
	Params     map[string]any
	// VotesKey and DatabaseKey override the default object keys of the snapshot.
	VotesKey    string
	DatabaseKey string
}

// Output describes an uploaded result.
type Output struct {
	Algorithm   string         `json:"algorithm"`
	SnapshotID  string         `json:"snapshotId"`
	Key         string         `json:"key"`
	Rows        int            `json:"rows"`
	InvalidRows int            `json:"invalidRows,omitempty"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// Runner loads snapshot inputs from object storage, scores them and uploads the CSV result.
type Runner struct {
	logger  *zap.Logger
	store   objectstore.Store
	tempDir string
	now     func() time.Time
}

// NewRunner builds a Runner. tempDir is the parent of per-call working directories.
func NewRunner(logger *zap.Logger, store objectstore.Store, tempDir string) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, store: store, tempDir: tempDir, now: time.Now}
}

// Run dispatches to the named algorithm.
func (r *Runner) Run(ctx context.Context, algorithm string, req Request) (*Output, error) {
	switch algorithm {
	case AlgorithmVotingEngagement:
		return r.VotingEngagement(ctx, req)
	case AlgorithmContributionScore:
		return r.ContributionScore(ctx, req)
	case AlgorithmProposalEngagement:
		return r.ProposalEngagement(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// VotingEngagement scores the snapshot's vote export.
func (r *Runner) VotingEngagement(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()
	params, err := ParseVotingParams(req.Params)
	if err != nil {
		return nil, err
	}

	key := objectstore.VotesKey(req.SnapshotID)
	switch {
	case params.VotesKey != "":
		key = params.VotesKey
	case req.VotesKey != "":
		key = req.VotesKey
	}
	body, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load votes %s: %w", key, err)
	}
	rows, err := ReadVotes(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	res := VotingEngagement(rows, params)
	if res.InvalidRows > 0 {
		r.logger.Warn("discarded invalid vote rows",
			zap.String("snapshot_id", req.SnapshotID),
			zap.Int("invalid_rows", res.InvalidRows),
		)
	}
	csvBody, err := EncodeVoting(res.Rows)
	if err != nil {
		return nil, err
	}
	out, err := r.upload(ctx, AlgorithmVotingEngagement, req.SnapshotID, csvBody, start)
	if err != nil {
		return nil, err
	}
	out.Rows = len(res.Rows)
	out.InvalidRows = res.InvalidRows
	return out, nil
}

// ContributionScore scores comment activity from the snapshot database.
func (r *Runner) ContributionScore(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()
	params, err := ParseContributionParams(req.Params, r.now())
	if err != nil {
		return nil, err
	}

	var in ContributionInput
	err = r.withDatabase(ctx, req, func(db *sqlite.DB) error {
		var err error
		if in.Comments, err = db.Comments().All(ctx); err != nil {
			return err
		}
		if in.CommentVotes, err = db.CommentVotes().All(ctx); err != nil {
			return err
		}
		if in.Proposals, err = db.Proposals().All(ctx); err != nil {
			return err
		}
		in.Users, err = db.Users().All(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := ContributionScore(in, params)
	csvBody, err := EncodeUserScores(ColumnContributionScore, res.Users)
	if err != nil {
		return nil, err
	}
	out, err := r.upload(ctx, AlgorithmContributionScore, req.SnapshotID, csvBody, start)
	if err != nil {
		return nil, err
	}
	out.Rows = len(res.Users)
	out.Skipped = res.Skipped
	return out, nil
}

// ProposalEngagement scores proposal outcomes from the snapshot database.
func (r *Runner) ProposalEngagement(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()
	params, err := ParseProposalEngagementParams(req.Params, r.now())
	if err != nil {
		return nil, err
	}

	var in ProposalInput
	err = r.withDatabase(ctx, req, func(db *sqlite.DB) error {
		var err error
		if in.Proposals, err = db.Proposals().All(ctx); err != nil {
			return err
		}
		if in.Reviews, err = db.Reviews().All(ctx); err != nil {
			return err
		}
		in.Users, err = db.Users().All(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := ProposalEngagement(in, params)
	csvBody, err := EncodeUserScores(ColumnProposalEngagement, res.Users)
	if err != nil {
		return nil, err
	}
	out, err := r.upload(ctx, AlgorithmProposalEngagement, req.SnapshotID, csvBody, start)
	if err != nil {
		return nil, err
	}
	out.Rows = len(res.Users)
	out.Skipped = res.Skipped
	return out, nil
}

// withDatabase downloads the snapshot database into a temporary directory and opens it for fn.
// The directory is removed on every exit path.
func (r *Runner) withDatabase(ctx context.Context, req Request, fn func(db *sqlite.DB) error) error {
	key := req.DatabaseKey
	if key == "" {
		key = objectstore.DatabaseKey(req.SnapshotID)
	}
	body, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load database %s: %w", key, err)
	}

	dir, err := os.MkdirTemp(r.tempDir, "score-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.logger.Warn("remove temp dir", zap.String("dir", dir), zap.Error(rmErr))
		}
	}()

	path := filepath.Join(dir, objectstore.DatabaseName+".db")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return fmt.Errorf("write database: %w", err)
	}
	db, err := sqlite.Open(ctx, r.logger, path, sqlite.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return fn(db)
}

func (r *Runner) upload(ctx context.Context, algorithm, snapshotID string, body []byte, start time.Time) (*Output, error) {
	key := objectstore.ResultKey(snapshotID, algorithm)
	if err := r.store.Put(ctx, key, body, objectstore.ContentTypeCSV); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	out := &Output{
		Algorithm:  algorithm,
		SnapshotID: snapshotID,
		Key:        key,
		Duration:   time.Since(start),
	}
	r.logger.Info("scoring completed",
		zap.String("snapshot_id", snapshotID),
		zap.String("algorithm", algorithm),
		zap.String("key", key),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}
