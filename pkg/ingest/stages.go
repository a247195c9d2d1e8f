package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
	"github.com/canopy-network/reputationx/pkg/db/sqlite"
	"github.com/canopy-network/reputationx/pkg/db/transform"
	"github.com/canopy-network/reputationx/pkg/objectstore"
	"github.com/canopy-network/reputationx/pkg/rpc"
)

// tables maps each portal resource to the table its rows land in.
var tables = map[rpc.Resource]portal.Table{
	rpc.Rounds:       portal.RoundsTable,
	rpc.Pools:        portal.PoolsTable,
	rpc.Proposals:    portal.ProposalsTable,
	rpc.Users:        portal.UsersTable,
	rpc.Milestones:   portal.MilestonesTable,
	rpc.Reviews:      portal.ReviewsTable,
	rpc.Comments:     portal.CommentsTable,
	rpc.CommentVotes: portal.CommentVotesTable,
}

// run is the state of one sync invocation. The store handle is owned by it alone.
type run struct {
	*Syncer
	id     string
	db     *sqlite.DB
	logger *zap.Logger
}

// fetchAll walks the resources in dependency order: rounds, proposals per round, pools, then
// the paginated resources page by page.
func (r *run) fetchAll(ctx context.Context) error {
	roundIDs, err := r.syncRounds(ctx)
	if err != nil {
		return fmt.Errorf("rounds: %w", err)
	}
	if err := r.syncProposals(ctx, roundIDs); err != nil {
		return fmt.Errorf("proposals: %w", err)
	}
	if err := r.syncSingle(ctx, rpc.Pools); err != nil {
		return fmt.Errorf("pools: %w", err)
	}
	for _, resource := range rpc.PaginatedResources {
		if err := r.syncPaginated(ctx, resource); err != nil {
			return fmt.Errorf("%s: %w", resource, err)
		}
	}
	return nil
}

// dualWrite uploads the raw body and inserts the rows concurrently, returning once both finished.
func (r *run) dualWrite(ctx context.Context, key string, body []byte, table portal.Table, rows []portal.Row) error {
	group := r.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	group.SubmitErr(func() error {
		if err := r.store.Put(groupCtx, key, body, objectstore.ContentTypeJSON); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		return nil
	})
	group.SubmitErr(func() error {
		return r.db.Insert(groupCtx, table, rows)
	})
	return group.Wait()
}

func (r *run) syncRounds(ctx context.Context) ([]int64, error) {
	page, err := rpc.FirstPage[json.RawMessage](ctx, r.client, rpc.Rounds, rpc.Query{})
	if err != nil {
		return nil, err
	}
	rows, err := transform.Batch(rpc.Rounds, page.Data)
	if err != nil {
		return nil, err
	}
	if err := r.dualWrite(ctx, objectstore.RawKey(r.id, rpc.Rounds.String()), page.Body, portal.RoundsTable, rows); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.(*portal.Round).ID)
	}
	r.logger.Debug("Rounds synced", zap.Int("rounds", len(ids)))
	return ids, nil
}

// roundProposals is the fetched proposal listing of one round.
type roundProposals struct {
	roundID int64
	body    []byte
	rows    []portal.Row
}

// syncProposals fetches every round's proposals concurrently, then writes them all.
func (r *run) syncProposals(ctx context.Context, roundIDs []int64) error {
	fetched := make([]roundProposals, len(roundIDs))

	fetchGroup := r.pool.NewGroupContext(ctx)
	fetchCtx := fetchGroup.Context()
	for i, roundID := range roundIDs {
		fetchGroup.SubmitErr(func() error {
			body, rows, err := r.fetchRoundProposals(fetchCtx, roundID)
			if err != nil {
				return fmt.Errorf("round %d: %w", roundID, err)
			}
			fetched[i] = roundProposals{roundID: roundID, body: body, rows: rows}
			return nil
		})
	}
	if err := fetchGroup.Wait(); err != nil {
		return err
	}

	writeGroup := r.pool.NewGroupContext(ctx)
	writeCtx := writeGroup.Context()
	for _, rp := range fetched {
		writeGroup.SubmitErr(func() error {
			key := objectstore.RoundProposalsKey(r.id, rp.roundID)
			if err := r.store.Put(writeCtx, key, rp.body, objectstore.ContentTypeJSON); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			return nil
		})
		writeGroup.SubmitErr(func() error {
			return r.db.Insert(writeCtx, portal.ProposalsTable, rp.rows)
		})
	}
	return writeGroup.Wait()
}

// fetchRoundProposals reads all proposal pages of one round. A single page is archived verbatim;
// several pages are archived as one envelope holding every item.
func (r *run) fetchRoundProposals(ctx context.Context, roundID int64) ([]byte, []portal.Row, error) {
	query := rpc.Query{
		Filters: map[string][]string{rpc.RoundIDParam: {fmt.Sprintf("%d", roundID)}},
		Limit:   r.pageLimit,
	}
	pager := rpc.NewPager[json.RawMessage](r.client, rpc.Proposals, query)

	var (
		pages int
		body  []byte
		items = make([]json.RawMessage, 0)
	)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, nil, err
		}
		if page == nil {
			break
		}
		pages++
		body = page.Body
		items = append(items, page.Data...)
	}

	if pages != 1 {
		combined, err := json.Marshal(map[string]any{
			"round_id":             roundID,
			rpc.Proposals.String(): items,
		})
		if err != nil {
			return nil, nil, err
		}
		body = combined
	}

	rows, err := transform.Proposals(items, roundID)
	if err != nil {
		return nil, nil, err
	}
	return body, rows, nil
}

// syncSingle handles resources served in one response.
func (r *run) syncSingle(ctx context.Context, resource rpc.Resource) error {
	page, err := rpc.FirstPage[json.RawMessage](ctx, r.client, resource, rpc.Query{})
	if err != nil {
		return err
	}
	rows, err := transform.Batch(resource, page.Data)
	if err != nil {
		return err
	}
	return r.dualWrite(ctx, objectstore.RawKey(r.id, resource.String()), page.Body, tables[resource], rows)
}

// syncPaginated writes each page (raw upload plus insert) before requesting the next one.
func (r *run) syncPaginated(ctx context.Context, resource rpc.Resource) error {
	pager := rpc.NewPager[json.RawMessage](r.client, resource, rpc.Query{Limit: r.pageLimit})
	pages := 0
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			break
		}
		rows, err := transform.Batch(resource, page.Data)
		if err != nil {
			return fmt.Errorf("page %d: %w", page.Number, err)
		}
		key := objectstore.PageKey(r.id, resource.String(), page.Number)
		if err := r.dualWrite(ctx, key, page.Body, tables[resource], rows); err != nil {
			return fmt.Errorf("page %d: %w", page.Number, err)
		}
		pages++
	}
	r.logger.Debug("Resource synced", zap.String("resource", resource.String()), zap.Int("pages", pages))
	return nil
}

// counts returns the number of stored rows per resource.
func (r *run) counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(tables))
	for resource, table := range tables {
		n, err := r.db.Count(ctx, table.Name)
		if err != nil {
			return nil, err
		}
		out[resource.String()] = n
	}
	return out, nil
}
