package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/reputationx/pkg/db/sqlite"
	"github.com/canopy-network/reputationx/pkg/db/transform"
	"github.com/canopy-network/reputationx/pkg/objectstore"
	"github.com/canopy-network/reputationx/pkg/rpc"
)

// fakePortal serves canned pages keyed by path, round_id and page number.
type fakePortal struct {
	mu     sync.Mutex
	pages  map[string]string
	calls  int
	onCall func(path string) error
}

func pageKey(path, round string, page string) string {
	if page == "" {
		page = "1"
	}
	return path + "|" + round + "|" + page
}

func (f *fakePortal) Get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	hook := f.onCall
	body, ok := f.pages[pageKey(path, q.Get(rpc.RoundIDParam), q.Get("page"))]
	f.mu.Unlock()

	if hook != nil {
		if err := hook(path); err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, &rpc.HTTPError{StatusCode: 404, Path: path}
	}
	return []byte(body), nil
}

func (f *fakePortal) Execute(context.Context, string, url.Values, any) error {
	return errors.New("not used")
}

func (f *fakePortal) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func envelope(key string, current int, next string, items string) string {
	return fmt.Sprintf(`{"%s":[%s],"pagination":{"current_page":%d,"next_page":%s,"prev_page":null,"total_pages":2,"total_count":3}}`,
		key, items, current, next)
}

const round2Proposals = `{"proposals":[{"id":200,"proposer_id":8,"created_at":"2024-03-01T00:00:00Z"}],"pagination":{"current_page":1,"next_page":null}}`

func newPortal() *fakePortal {
	return &fakePortal{pages: map[string]string{
		pageKey("/rounds", "", ""): envelope("rounds", 1, "null", `{"id":1,"pool_ids":[10]},{"id":2,"pool_ids":[10]}`),
		pageKey("/proposals", "1", "1"): envelope("proposals", 1, "2",
			`{"id":100,"proposer_id":7,"is_awarded":true,"is_completed":true,"team_members":[9],"created_at":"2024-01-01T00:00:00Z"}`),
		pageKey("/proposals", "1", "2"): envelope("proposals", 2, "null",
			`{"id":101,"proposer_id":7,"created_at":"2024-02-01T00:00:00Z"}`),
		pageKey("/proposals", "2", "1"): round2Proposals,
		pageKey("/pools", "", ""):       envelope("pools", 1, "null", `{"id":10,"name":"Main","max_funding_amount":"50000"}`),
		pageKey("/milestones", "", "1"): envelope("milestones", 1, "null",
			`{"proposal_id":100,"created_at":"2024-01-02","milestones":[{"id":1,"title":"a"},{"id":2,"title":"b"}]}`),
		pageKey("/reviews", "", "1"): envelope("reviews", 1, "2",
			`{"id":1,"proposal_id":100,"reviewer_id":8,"review_type":"community","overall_rating":"4"}`),
		pageKey("/reviews", "", "2"): envelope("reviews", 2, "null",
			`{"id":2,"proposal_id":100,"reviewer_id":9,"review_type":"community","overall_rating":"5"}`),
		pageKey("/comments", "", "1"): envelope("comments", 1, "null",
			`{"comment_id":1,"user_id":8,"proposal_id":100,"created_at":"2024-01-05T00:00:00Z"}`),
		pageKey("/comment_votes", "", "1"): envelope("comment_votes", 1, "null",
			`{"voter_id":7,"comment_id":1,"vote_type":"upvote"}`),
		pageKey("/users", "", "1"): envelope("users", 1, "null",
			`{"id":7,"collection_id":"c7"},{"id":8,"collection_id":"c8"},{"id":9,"collection_id":"c9"}`),
	}}
}

func newTestSyncer(t *testing.T, client rpc.Client, store objectstore.Store) (*Syncer, string) {
	t.Helper()
	tmp := t.TempDir()
	s := NewSyncer(Config{
		Logger:         zaptest.NewLogger(t),
		Client:         client,
		Store:          store,
		MaxConcurrency: 3,
		TempDir:        tmp,
		PageLimit:      1,
		ChunkSize:      2,
	})
	t.Cleanup(s.Close)
	return s, tmp
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directory must be removed")
}

func TestSync_WritesRawPagesStoreAndManifest(t *testing.T) {
	ctx := context.Background()
	portal := newPortal()
	store := objectstore.NewMemory()
	s, tmp := newTestSyncer(t, portal, store)

	res, err := s.Sync(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, "snapshot/s1/portal.db", res.DatabaseKey)
	assert.Equal(t, "snapshot/s1/manifest.json", res.ManifestKey)
	assert.Equal(t, "snapshot/s1/", res.RawPrefix)

	assert.Equal(t, []string{
		"snapshot/s1/comment_votes/page_1.json",
		"snapshot/s1/comments/page_1.json",
		"snapshot/s1/manifest.json",
		"snapshot/s1/milestones/page_1.json",
		"snapshot/s1/pools.json",
		"snapshot/s1/portal.db",
		"snapshot/s1/proposals/round_1.json",
		"snapshot/s1/proposals/round_2.json",
		"snapshot/s1/reviews/page_1.json",
		"snapshot/s1/reviews/page_2.json",
		"snapshot/s1/rounds.json",
		"snapshot/s1/users/page_1.json",
	}, store.Keys("snapshot/s1/"))

	assert.Equal(t, map[string]int{
		"rounds": 2, "proposals": 3, "pools": 1, "milestones": 2,
		"reviews": 2, "comments": 1, "comment_votes": 1, "users": 3,
	}, res.Counts)

	raw, err := store.Get(ctx, "snapshot/s1/proposals/round_2.json")
	require.NoError(t, err)
	assert.Equal(t, round2Proposals, string(raw), "single page is archived verbatim")

	raw, err = store.Get(ctx, "snapshot/s1/proposals/round_1.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"round_id":1`)
	assert.Contains(t, string(raw), `"id":101`)

	b, err := store.Get(ctx, res.ManifestKey)
	require.NoError(t, err)
	manifest, err := DecodeManifest(b)
	require.NoError(t, err)
	assert.Equal(t, "s1", manifest.SnapshotID)
	assert.Equal(t, res.DatabaseKey, manifest.DBKey)
	assert.Equal(t, res.RawPrefix, manifest.RawPrefix)
	assert.NotEmpty(t, manifest.RunID)
	assert.False(t, manifest.CompletedAt.Before(manifest.StartedAt))
	assert.Equal(t, res.Counts, manifest.Counts)
	assert.Equal(t, objectstore.ContentTypeSQLite, store.ContentType(res.DatabaseKey))

	// The uploaded file is a complete store.
	dbBytes, err := store.Get(ctx, res.DatabaseKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, os.WriteFile(path, dbBytes, 0o600))
	db, err := sqlite.Open(ctx, zaptest.NewLogger(t), path, sqlite.Options{})
	require.NoError(t, err)
	defer db.Close()

	p, err := db.Proposals().FindByKey(ctx, int64(101))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.RoundID)
	m, err := db.Milestones().FindByKey(ctx, int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.ProposalID)

	assertEmptyDir(t, tmp)
}

func TestSync_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	portal := newPortal()
	store := objectstore.NewMemory()
	s, tmp := newTestSyncer(t, portal, store)

	first, err := s.Sync(ctx, "s1")
	require.NoError(t, err)
	puts, calls := store.PutCount(), portal.callCount()

	second, err := s.Sync(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.DatabaseKey, second.DatabaseKey)
	assert.Equal(t, first.ManifestKey, second.ManifestKey)
	assert.Equal(t, first.RawPrefix, second.RawPrefix)
	assert.Equal(t, first.Counts, second.Counts)

	assert.Equal(t, puts, store.PutCount(), "no store writes on the second call")
	assert.Equal(t, calls, portal.callCount(), "no network calls on the second call")
	assertEmptyDir(t, tmp)
}

func TestSync_StoreFileWithoutManifestIsRedone(t *testing.T) {
	ctx := context.Background()
	portal := newPortal()
	store := objectstore.NewMemory()
	require.NoError(t, store.Put(ctx, objectstore.DatabaseKey("s1"), []byte("partial"), objectstore.ContentTypeSQLite))
	s, _ := newTestSyncer(t, portal, store)

	res, err := s.Sync(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Greater(t, portal.callCount(), 0)

	ok, err := store.Exists(ctx, res.ManifestKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func assertNotFinalized(t *testing.T, store *objectstore.Memory, id string) {
	t.Helper()
	ctx := context.Background()
	ok, err := store.Exists(ctx, objectstore.ManifestKey(id))
	require.NoError(t, err)
	assert.False(t, ok, "manifest must not be written")
	ok, err = store.Exists(ctx, objectstore.DatabaseKey(id))
	require.NoError(t, err)
	assert.False(t, ok, "store file must not be uploaded")
}

func TestSync_ClientErrorAbortsAndCleansUp(t *testing.T) {
	portal := newPortal()
	delete(portal.pages, pageKey("/reviews", "", "2"))
	store := objectstore.NewMemory()
	s, tmp := newTestSyncer(t, portal, store)

	_, err := s.Sync(context.Background(), "s1")
	require.Error(t, err)
	var httpErr *rpc.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.StatusCode)
	assert.True(t, rpc.IsTerminal(err))
	assert.Contains(t, err.Error(), "reviews")

	assertNotFinalized(t, store, "s1")
	assertEmptyDir(t, tmp)
}

func TestSync_MalformedPayloadAborts(t *testing.T) {
	portal := newPortal()
	portal.pages[pageKey("/comments", "", "1")] = envelope("comments", 1, "null", `{"comment_id":1,"proposal_id":100}`)
	store := objectstore.NewMemory()
	s, tmp := newTestSyncer(t, portal, store)

	_, err := s.Sync(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, transform.IsParseError(err))

	assertNotFinalized(t, store, "s1")
	assertEmptyDir(t, tmp)
}

type failingStore struct {
	*objectstore.Memory
	suffix string
}

func (f *failingStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if strings.HasSuffix(key, f.suffix) {
		return errors.New("bucket unavailable")
	}
	return f.Memory.Put(ctx, key, body, contentType)
}

func TestSync_UploadFailureAborts(t *testing.T) {
	mem := objectstore.NewMemory()
	s, tmp := newTestSyncer(t, newPortal(), &failingStore{Memory: mem, suffix: "pools.json"})

	_, err := s.Sync(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Empty(t, mem.Keys("snapshot/s1/users/"), "later resources are not fetched")

	assertNotFinalized(t, mem, "s1")
	assertEmptyDir(t, tmp)
}

func TestSync_CancellationCleansUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	portal := newPortal()
	portal.onCall = func(path string) error {
		if path == "/comments" {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	store := objectstore.NewMemory()
	s, tmp := newTestSyncer(t, portal, store)

	_, err := s.Sync(ctx, "s1")
	require.ErrorIs(t, err, context.Canceled)

	assertNotFinalized(t, store, "s1")
	assertEmptyDir(t, tmp)
}

func TestSync_RejectsConcurrentRunOfSameSnapshot(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	portal := newPortal()
	portal.onCall = func(path string) error {
		if path == "/rounds" {
			once.Do(func() { close(entered) })
			<-release
		}
		return nil
	}
	store := objectstore.NewMemory()
	s, _ := newTestSyncer(t, portal, store)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Sync(context.Background(), "s1")
		errCh <- err
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first sync never reached the portal")
	}

	_, err := s.Sync(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	require.NoError(t, <-errCh)

	res, err := s.Sync(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestValidateSnapshotID(t *testing.T) {
	assert.NoError(t, ValidateSnapshotID("2024-q3"))
	for _, bad := range []string{"", "  ", "a/b", `a\b`, "..", "x..y"} {
		assert.ErrorIs(t, ValidateSnapshotID(bad), ErrInvalidSnapshotID, bad)
	}

	s, _ := newTestSyncer(t, newPortal(), objectstore.NewMemory())
	_, err := s.Sync(context.Background(), "a/b")
	assert.ErrorIs(t, err, ErrInvalidSnapshotID)
}
