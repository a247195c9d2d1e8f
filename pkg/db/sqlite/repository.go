package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

type rowPtr[T any] interface {
	*T
	portal.Row
}

// Repository exposes the writes and reads the pipeline needs on one table.
type Repository[T any, P rowPtr[T]] struct {
	db    *DB
	table portal.Table
}

func newRepository[T any, P rowPtr[T]](db *DB, table portal.Table) *Repository[T, P] {
	return &Repository[T, P]{db: db, table: table}
}

func (db *DB) Rounds() *Repository[portal.Round, *portal.Round] {
	return newRepository[portal.Round](db, portal.RoundsTable)
}

func (db *DB) Pools() *Repository[portal.Pool, *portal.Pool] {
	return newRepository[portal.Pool](db, portal.PoolsTable)
}

func (db *DB) Proposals() *Repository[portal.Proposal, *portal.Proposal] {
	return newRepository[portal.Proposal](db, portal.ProposalsTable)
}

func (db *DB) Users() *Repository[portal.User, *portal.User] {
	return newRepository[portal.User](db, portal.UsersTable)
}

func (db *DB) Milestones() *Repository[portal.Milestone, *portal.Milestone] {
	return newRepository[portal.Milestone](db, portal.MilestonesTable)
}

func (db *DB) Reviews() *Repository[portal.Review, *portal.Review] {
	return newRepository[portal.Review](db, portal.ReviewsTable)
}

func (db *DB) Comments() *Repository[portal.Comment, *portal.Comment] {
	return newRepository[portal.Comment](db, portal.CommentsTable)
}

func (db *DB) CommentVotes() *Repository[portal.CommentVote, *portal.CommentVote] {
	return newRepository[portal.CommentVote](db, portal.CommentVotesTable)
}

// Create inserts (or replaces) one row.
func (r *Repository[T, P]) Create(ctx context.Context, row P) error {
	return r.db.Insert(ctx, r.table, []portal.Row{row})
}

// CreateMany inserts rows in chunked transactions.
func (r *Repository[T, P]) CreateMany(ctx context.Context, rows []P) error {
	generic := make([]portal.Row, len(rows))
	for i, row := range rows {
		generic[i] = row
	}
	return r.db.Insert(ctx, r.table, generic)
}

// FindByKey loads the row whose primary key columns equal key, in Table.Key order.
func (r *Repository[T, P]) FindByKey(ctx context.Context, key ...any) (P, error) {
	if len(key) != len(r.table.Key) {
		return nil, fmt.Errorf("%s: expected %d key values, got %d", r.table.Name, len(r.table.Key), len(key))
	}
	conds := make([]string, len(r.table.Key))
	for i, k := range r.table.Key {
		conds[i] = k + " = ?"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(portal.ColumnsToNameList(r.table.Columns), ", "), r.table.Name, strings.Join(conds, " AND "))

	var v T
	row := P(&v)
	if err := r.db.conn.QueryRowContext(ctx, query, key...).Scan(row.Fields()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", r.table.Name, err)
	}
	return row, nil
}

// All returns every row ordered by primary key.
func (r *Repository[T, P]) All(ctx context.Context) ([]P, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(portal.ColumnsToNameList(r.table.Columns), ", "), r.table.Name, strings.Join(r.table.Key, ", "))

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table.Name, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]P, 0)
	for rows.Next() {
		var v T
		row := P(&v)
		if err := rows.Scan(row.Fields()...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.Name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table.Name, err)
	}
	return out, nil
}

// Count returns the number of rows in the table.
func (r *Repository[T, P]) Count(ctx context.Context) (int, error) {
	return r.db.Count(ctx, r.table.Name)
}

// Count returns the number of rows in the named table.
func (db *DB) Count(ctx context.Context, table string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Insert writes rows into table with INSERT OR REPLACE, one transaction per chunk.
// A row repeated across calls collapses onto its primary key.
func (db *DB) Insert(ctx context.Context, table portal.Table, rows []portal.Row) error {
	if len(rows) == 0 {
		return nil
	}

	names := portal.ColumnsToNameList(table.Columns)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", table.Name, strings.Join(names, ", "), placeholders)

	for start := 0; start < len(rows); start += db.chunkSize {
		end := start + db.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := db.insertChunk(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert %s rows %d-%d: %w", table.Name, start, end-1, err)
		}
	}

	db.Logger.Debug("Rows inserted", zap.String("table", table.Name), zap.Int("rows", len(rows)))
	return nil
}

func (db *DB) insertChunk(ctx context.Context, query string, rows []portal.Row) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, row.Values()...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
