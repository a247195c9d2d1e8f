package rpc

import (
	"context"
	"net/url"
)

// Client captures the calls the ingestion pipeline makes against the portal API.
type Client interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
	Execute(ctx context.Context, path string, query url.Values, out any) error
}

// Factory produces clients sharing one set of defaults.
type Factory interface {
	NewClient() Client
}

type httpFactory struct {
	opts Opts
}

// NewHTTPFactory returns a factory that builds HTTP clients with shared defaults.
func NewHTTPFactory(opts Opts) Factory {
	return &httpFactory{opts: opts}
}

func (f *httpFactory) NewClient() Client {
	return NewHTTPWithOpts(f.opts)
}
