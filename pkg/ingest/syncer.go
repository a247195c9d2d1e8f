package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/db/sqlite"
	"github.com/canopy-network/reputationx/pkg/objectstore"
	"github.com/canopy-network/reputationx/pkg/rpc"
)

var (
	// ErrSyncInProgress is returned when the same snapshot is already being synced by this worker.
	ErrSyncInProgress = errors.New("ingest: sync already in progress for snapshot")
	// ErrInvalidSnapshotID rejects ids that cannot be used as a storage path segment.
	ErrInvalidSnapshotID = errors.New("ingest: invalid snapshot id")
)

// Config wires a Syncer.
type Config struct {
	Logger         *zap.Logger
	Client         rpc.Client
	Store          objectstore.Store
	MaxConcurrency int
	// TempDir is the parent of per-sync working directories; empty uses the OS default.
	TempDir   string
	PageLimit int
	ChunkSize int
}

// Result describes a finished (or skipped) sync.
type Result struct {
	SnapshotID  string         `json:"snapshotId"`
	DatabaseKey string         `json:"databaseKey"`
	ManifestKey string         `json:"manifestKey"`
	RawPrefix   string         `json:"rawPrefix"`
	Skipped     bool           `json:"skipped"`
	Counts      map[string]int `json:"counts"`
	Duration    time.Duration  `json:"duration"`
}

// Syncer copies the portal into a per-snapshot SQLite file and object storage.
type Syncer struct {
	logger    *zap.Logger
	client    rpc.Client
	store     objectstore.Store
	pool      pond.Pool
	tempDir   string
	pageLimit int
	chunkSize int
	now       func() time.Time
	inFlight  *xsync.Map[string, time.Time]
}

// NewSyncer builds a Syncer with its own bounded worker pool. Call Close to release it.
func NewSyncer(cfg Config) *Syncer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 100
	}
	return &Syncer{
		logger:    cfg.Logger,
		client:    cfg.Client,
		store:     cfg.Store,
		pool:      pond.NewPool(cfg.MaxConcurrency),
		tempDir:   cfg.TempDir,
		pageLimit: cfg.PageLimit,
		chunkSize: cfg.ChunkSize,
		now:       time.Now,
		inFlight:  xsync.NewMap[string, time.Time](),
	}
}

// Close stops the worker pool after queued tasks finish.
func (s *Syncer) Close() {
	s.pool.StopAndWait()
}

// Sync ingests one snapshot. When the store file and manifest already exist it returns their
// keys without writing anything. Any failure aborts the run before the manifest is written.
// The working directory is removed on every exit path.
func (s *Syncer) Sync(ctx context.Context, snapshotID string) (*Result, error) {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	if _, busy := s.inFlight.LoadOrStore(snapshotID, s.now()); busy {
		return nil, fmt.Errorf("%w: %s", ErrSyncInProgress, snapshotID)
	}
	defer s.inFlight.Delete(snapshotID)

	start := s.now()
	logger := s.logger.With(zap.String("snapshotId", snapshotID))
	result := &Result{
		SnapshotID:  snapshotID,
		DatabaseKey: objectstore.DatabaseKey(snapshotID),
		ManifestKey: objectstore.ManifestKey(snapshotID),
		RawPrefix:   objectstore.RawPrefix(snapshotID),
		Counts:      map[string]int{},
	}

	done, err := s.completed(ctx, result)
	if err != nil {
		return nil, err
	}
	if done {
		result.Skipped = true
		result.Duration = s.now().Sub(start)
		logger.Info("Snapshot already synced, skipping", zap.String("dbKey", result.DatabaseKey))
		return result, nil
	}

	workDir, err := os.MkdirTemp(s.tempDir, "snapshot-"+snapshotID+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	dbPath := filepath.Join(workDir, objectstore.DatabaseName+".db")

	db, err := sqlite.Open(ctx, logger, dbPath, sqlite.Options{ChunkSize: s.chunkSize})
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("Failed to close snapshot store", zap.Error(cerr))
		}
		if rerr := os.RemoveAll(workDir); rerr != nil {
			logger.Warn("Failed to remove work dir", zap.String("dir", workDir), zap.Error(rerr))
		}
	}()

	run := &run{Syncer: s, id: snapshotID, db: db, logger: logger}
	if err := run.fetchAll(ctx); err != nil {
		return nil, fmt.Errorf("sync %s: %w", snapshotID, err)
	}

	counts, err := run.counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", snapshotID, err)
	}
	result.Counts = counts

	if err := s.finalize(ctx, db, result, start); err != nil {
		return nil, fmt.Errorf("sync %s: %w", snapshotID, err)
	}

	result.Duration = s.now().Sub(start)
	logger.Info("Snapshot synced",
		zap.String("dbKey", result.DatabaseKey),
		zap.Any("counts", result.Counts),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// completed reports whether both the store file and the manifest exist. A store file without
// a manifest is an interrupted finalize and is synced again.
func (s *Syncer) completed(ctx context.Context, result *Result) (bool, error) {
	dbExists, err := s.store.Exists(ctx, result.DatabaseKey)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", result.DatabaseKey, err)
	}
	if !dbExists {
		return false, nil
	}
	manifestExists, err := s.store.Exists(ctx, result.ManifestKey)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", result.ManifestKey, err)
	}
	if !manifestExists {
		s.logger.Warn("Store file present without manifest, syncing again",
			zap.String("snapshotId", result.SnapshotID))
		return false, nil
	}

	if b, err := s.store.Get(ctx, result.ManifestKey); err == nil {
		if m, err := DecodeManifest(b); err == nil && m.Counts != nil {
			result.Counts = m.Counts
		}
	}
	return true, nil
}

// finalize closes the store so every page is flushed, uploads the file, then writes the manifest.
func (s *Syncer) finalize(ctx context.Context, db *sqlite.DB, result *Result, start time.Time) error {
	if err := db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	body, err := os.ReadFile(db.Path())
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}
	if err := s.store.Put(ctx, result.DatabaseKey, body, objectstore.ContentTypeSQLite); err != nil {
		return fmt.Errorf("upload store file: %w", err)
	}

	manifest := &Manifest{
		SnapshotID:  result.SnapshotID,
		RunID:       uuid.NewString(),
		StartedAt:   start.UTC(),
		CompletedAt: s.now().UTC(),
		DBKey:       result.DatabaseKey,
		RawPrefix:   result.RawPrefix,
		Counts:      result.Counts,
	}
	b, err := manifest.Encode()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := s.store.Put(ctx, result.ManifestKey, b, objectstore.ContentTypeJSON); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}
	return nil
}

// ValidateSnapshotID rejects empty ids and ids that would escape their storage folder.
func ValidateSnapshotID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidSnapshotID)
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return nil
}
