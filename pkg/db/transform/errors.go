package transform

import (
	"errors"
	"fmt"
)

// ParseError reports a raw payload that could not be normalized.
// Index is the position in the batch, or -1 for a single item.
type ParseError struct {
	Resource string
	Index    int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("parse %s[%d]: %v", e.Resource, e.Index, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func parseErr(resource string, err error) error {
	return &ParseError{Resource: resource, Index: -1, Err: err}
}

func missing(field string) error {
	return fmt.Errorf("missing required field %q", field)
}
