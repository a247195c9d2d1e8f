package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/canopy-network/reputationx/pkg/retry"
	"github.com/canopy-network/reputationx/pkg/utils"
)

// HTTPClient issues authenticated GET requests against the portal API.
// At most MaxConcurrency requests are in flight; further callers wait in FIFO order.
// Transient failures are retried with exponential backoff and jitter.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	authHeader string
	client     *http.Client
	sem        *semaphore.Weighted
	retry      retry.Config
	logger     *zap.Logger
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	BaseURL        string
	APIKey         string
	AuthHeader     string
	Timeout        time.Duration
	MaxConcurrency int
	Retry          retry.Config
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 4
	}
	if o.AuthHeader == "" {
		o.AuthHeader = "x-api-key"
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = retry.DefaultConfig()
	}
	if o.Retry.Retryable == nil {
		o.Retry.Retryable = IsRetryable
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &HTTPClient{
		baseURL:    utils.TrimBaseURL(o.BaseURL),
		apiKey:     o.APIKey,
		authHeader: o.AuthHeader,
		client:     client,
		sem:        semaphore.NewWeighted(int64(o.MaxConcurrency)),
		retry:      o.Retry,
		logger:     o.Logger,
	}
}

// Execute performs a GET on path with the given query and decodes the JSON body into out.
// A body that is not valid JSON is a terminal error and is not retried.
func (c *HTTPClient) Execute(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Get performs a GET on path and returns the raw 2xx response body.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body []byte
	err := retry.WithBackoff(ctx, c.retry, c.logger, "GET "+path, func(attempt int) error {
		b, doErr := c.do(ctx, target, path)
		if doErr != nil {
			c.logger.Debug("portal request failed",
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Error(doErr))
			return doErr
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// do runs a single attempt while holding one concurrency slot.
func (c *HTTPClient) do(ctx context.Context, target, path string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.authHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       utils.ReadSnippet(resp.Body, 512),
		}
		_ = utils.DrainAndClose(resp.Body)
		return nil, httpErr
	}

	b, readErr := io.ReadAll(resp.Body)
	if cerr := utils.DrainAndClose(resp.Body); cerr != nil && readErr == nil {
		readErr = cerr
	}
	if readErr != nil {
		return nil, readErr
	}
	return b, nil
}
