package utils

import "io"

// maxDrainBytes bounds how much of an unread body is discarded before closing.
// Bodies larger than this are closed without draining and the connection is not reused.
const maxDrainBytes = 64 << 10

// DrainAndClose discards what is left of the body (up to 64KiB) and closes it.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.CopyN(io.Discard, rc, maxDrainBytes)
	return rc.Close()
}

// ReadSnippet reads at most n bytes from r. Used to attach a short body excerpt to HTTP errors.
func ReadSnippet(r io.Reader, n int64) string {
	if r == nil || n <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return string(b)
}
