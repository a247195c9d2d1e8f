package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	pages    map[int]string
	requests []url.Values
	err      error
}

func (f *fakeClient) Get(_ context.Context, _ string, q url.Values) ([]byte, error) {
	f.requests = append(f.requests, q)
	if f.err != nil {
		return nil, f.err
	}
	n, _ := strconv.Atoi(q.Get("page"))
	body, ok := f.pages[n]
	if !ok {
		return nil, &HTTPError{StatusCode: 404, Path: "/test"}
	}
	return []byte(body), nil
}

func (f *fakeClient) Execute(ctx context.Context, path string, q url.Values, out any) error {
	b, err := f.Get(ctx, path, q)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func usersPage(current int, next string, ids ...int) string {
	items := make([]map[string]int, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]int{"id": id})
	}
	b, _ := json.Marshal(items)
	return fmt.Sprintf(`{"users":%s,"pagination":{"current_page":%d,"next_page":%s,"prev_page":null,"total_pages":3,"total_count":5}}`,
		b, current, next)
}

type idOnly struct {
	ID int `json:"id"`
}

func TestFetchAllPages_PreservesOrder(t *testing.T) {
	client := &fakeClient{pages: map[int]string{
		1: usersPage(1, "2", 1, 2),
		2: usersPage(2, "3", 3, 4),
		3: usersPage(3, "null", 5),
	}}

	all, err := FetchAllPages[idOnly](context.Background(), client, Users, Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, u := range all {
		assert.Equal(t, i+1, u.ID)
	}
	require.Len(t, client.requests, 3)
	assert.Equal(t, "2", client.requests[0].Get("limit"))
	assert.Equal(t, "3", client.requests[2].Get("page"))
}

func TestFetchAllPages_SingleEmptyPage(t *testing.T) {
	client := &fakeClient{pages: map[int]string{
		1: `{"users":[],"pagination":{"current_page":1,"next_page":null,"total_pages":1,"total_count":0}}`,
	}}

	all, err := FetchAllPages[idOnly](context.Background(), client, Users, Query{})
	require.NoError(t, err)
	require.NotNil(t, all)
	assert.Empty(t, all)
}

func TestPager_NextReturnsNilWhenExhausted(t *testing.T) {
	client := &fakeClient{pages: map[int]string{1: usersPage(1, "null", 9)}}
	pager := NewPager[json.RawMessage](client, Users, Query{})

	page, err := pager.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 1, page.Number)
	assert.JSONEq(t, `{"id":9}`, string(page.Data[0]))
	assert.Contains(t, string(page.Body), `"users"`)

	page, err = pager.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.Len(t, client.requests, 1)
}

func TestPager_KeepsFilters(t *testing.T) {
	client := &fakeClient{pages: map[int]string{
		1: `{"proposals":[{"id":1}],"pagination":{"current_page":1,"next_page":null}}`,
	}}
	q := Query{Filters: url.Values{RoundIDParam: {"7"}}, Limit: 50}

	page, err := FirstPage[idOnly](context.Background(), client, Proposals, q)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "7", client.requests[0].Get(RoundIDParam))
	assert.Equal(t, "50", client.requests[0].Get("limit"))
}

func TestPager_MissingResourceKey(t *testing.T) {
	client := &fakeClient{pages: map[int]string{1: `{"data":[],"pagination":{"current_page":1}}`}}

	_, err := FetchAllPages[idOnly](context.Background(), client, Reviews, Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "reviews"`)
}

func TestPager_RejectsNonAdvancingNextPage(t *testing.T) {
	client := &fakeClient{pages: map[int]string{1: usersPage(1, "1", 1)}}

	_, err := FetchAllPages[idOnly](context.Background(), client, Users, Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not advance")
}

func TestPager_PropagatesClientErrors(t *testing.T) {
	client := &fakeClient{err: &HTTPError{StatusCode: 401, Path: "/users"}}

	_, err := FetchAllPages[idOnly](context.Background(), client, Users, Query{})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
}

func TestFetchAllPages_OverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(usersPage(1, "2", 1, 2)))
		default:
			_, _ = w.Write([]byte(usersPage(2, "null", 3)))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{})
	all, err := FetchAllPages[idOnly](context.Background(), client, Users, Query{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []idOnly{{1}, {2}, {3}}, all)
}
