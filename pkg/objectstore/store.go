package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("objectstore: object not found")

// Content types used for uploaded objects.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeSQLite = "application/vnd.sqlite3"
	ContentTypeCSV    = "text/csv"
)

// Store is the subset of durable object storage the pipeline consumes.
// Exists reports a missing key as false with a nil error.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}
