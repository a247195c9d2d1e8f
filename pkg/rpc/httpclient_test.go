package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/reputationx/pkg/retry"
)

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:    attempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		JitterFraction: 0.5,
	}
}

func newTestClient(t *testing.T, serverURL string, opts Opts) *HTTPClient {
	t.Helper()
	opts.BaseURL = serverURL
	if opts.APIKey == "" {
		opts.APIKey = "test-key"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = fastRetry(3)
	}
	opts.Logger = zaptest.NewLogger(t)
	return NewHTTPWithOpts(opts)
}

func TestHTTPClient_ExecuteSendsAuthAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rounds", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", Opts{})

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.Execute(context.Background(), "/rounds", url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestHTTPClient_CustomAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.Header.Get("Api-Key"))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{APIKey: "abc", AuthHeader: "Api-Key"})
	require.NoError(t, client.Execute(context.Background(), "/users", nil, nil))
}

func TestHTTPClient_RetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"value":42}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{Retry: fastRetry(5)})

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, client.Execute(context.Background(), "/pools", nil, &out))
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClient_RetriesTooManyRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{})
	require.NoError(t, client.Execute(context.Background(), "/pools", nil, nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no such round")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{Retry: fastRetry(5)})
	err := client.Execute(context.Background(), "/rounds", nil, nil)

	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "no such round")
	assert.True(t, IsTerminal(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClient_SurfacesLastErrorWhenExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{Retry: fastRetry(3)})
	err := client.Execute(context.Background(), "/comments", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClient_InvalidJSONIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{})
	var out map[string]any
	err := client.Execute(context.Background(), "/users", nil, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode /users response")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClient_RespectsConcurrencyCap(t *testing.T) {
	var inFlight, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Opts{MaxConcurrency: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Execute(context.Background(), "/users", nil, nil))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestHTTPClient_CancelledContextStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server.URL, Opts{MaxConcurrency: 1})

	go func() { _ = client.Execute(context.Background(), "/users", nil, nil) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := client.Execute(ctx, "/users", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"500", &HTTPError{StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("fetch: %w", &HTTPError{StatusCode: 503}), true},
		{"400", &HTTPError{StatusCode: 400}, false},
		{"404", &HTTPError{StatusCode: 404}, false},
		{"reset", &url.Error{Op: "Get", URL: "http://x", Err: syscall.ECONNRESET}, true},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, true},
		{"hang up", io.ErrUnexpectedEOF, true},
		{"network error text", errors.New("Network Error"), true},
		{"cancelled", context.Canceled, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
