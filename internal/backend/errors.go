package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrNotFound tags a 404 from the backend. For portfolio lookups this means
// "no portfolio", which callers treat as an empty state, not a failure.
var ErrNotFound = errors.New("backend: not found")

// ErrTimeout tags a request that outlived its advisory deadline. Timed-out
// requests surface as errors to the user; they are never retried here.
var ErrTimeout = errors.New("backend: request timed out")

// Error is the normalized shape for every non-2xx, non-404 backend failure.
type Error struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status,omitempty"`
	Details    string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func normalizeTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &Error{Message: "backend unreachable", Details: err.Error()}
}
