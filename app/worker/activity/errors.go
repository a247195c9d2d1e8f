package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/canopy-network/reputationx/pkg/db/snapshot"
	"github.com/canopy-network/reputationx/pkg/db/transform"
	"github.com/canopy-network/reputationx/pkg/ingest"
	"github.com/canopy-network/reputationx/pkg/rpc"
	"github.com/canopy-network/reputationx/pkg/scoring"
)

// Application error types reported to the workflow.
const (
	ErrTypeClient     = "PortalClientError"
	ErrTypeParse      = "ParseError"
	ErrTypeValidation = "ValidationError"
	ErrTypeNotFound   = "NotFound"
)

// classify wraps errors that cannot succeed on retry as non-retryable application errors.
// Everything else is returned unchanged so the activity retry policy applies.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errType := nonRetryableType(err); errType != "" {
		return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
	}
	return err
}

func nonRetryableType(err error) string {
	var httpErr *rpc.HTTPError
	var paramErr *scoring.ParamError
	switch {
	case errors.As(err, &httpErr) && !httpErr.Retryable():
		return ErrTypeClient
	case transform.IsParseError(err):
		return ErrTypeParse
	case errors.As(err, &paramErr),
		errors.Is(err, ingest.ErrInvalidSnapshotID),
		errors.Is(err, scoring.ErrUnknownAlgorithm):
		return ErrTypeValidation
	case errors.Is(err, snapshot.ErrNotFound):
		return ErrTypeNotFound
	}
	return ""
}
