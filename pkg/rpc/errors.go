package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("http %d for %s: %s", e.StatusCode, e.Path, e.Body)
}

// Retryable reports whether the status is worth another attempt (429 or 5xx).
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// transientMessages catches transport failures that surface only as text.
var transientMessages = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"socket hang up",
	"network error",
	"timeout",
}

// IsRetryable classifies an attempt error:
// 429/5xx and transport failures are retryable, other 4xx and everything else are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTerminal is the negation of IsRetryable for non-nil errors. Callers use it to stop an outer
// retry envelope (for example a workflow engine) from repeating work that cannot succeed.
func IsTerminal(err error) bool {
	return err != nil && !IsRetryable(err)
}
