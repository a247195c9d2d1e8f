package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned by FindByKey when no row matches.
var ErrNotFound = errors.New("sqlite: row not found")

// DefaultChunkSize is the number of rows written per transaction by CreateMany.
const DefaultChunkSize = 500

// Options tunes a snapshot store handle.
type Options struct {
	ChunkSize int
}

// DB is the snapshot store: one SQLite file owned by one sync or scoring call.
// The handle holds a single connection; it is not meant to be shared across snapshots.
type DB struct {
	Logger    *zap.Logger
	conn      *sql.DB
	path      string
	chunkSize int

	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the SQLite file at path and bootstraps the schema.
func Open(ctx context.Context, logger *zap.Logger, path string, opts Options) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=off&_journal_mode=DELETE&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	db := &DB{Logger: logger, conn: conn, path: path, chunkSize: opts.ChunkSize}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("Snapshot store opened", zap.String("path", path), zap.Int("chunk_size", opts.ChunkSize))
	return db, nil
}

// Path returns the file backing the store.
func (db *DB) Path() string { return db.path }

// Exec runs a statement without returning rows.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := db.conn.ExecContext(ctx, query, args...)
	return err
}

// Close releases the connection. It is safe to call more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.closeErr = db.conn.Close()
	})
	return db.closeErr
}
