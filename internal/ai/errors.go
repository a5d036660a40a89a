package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrInvalidArgument is returned when the interests text is blank.
	ErrInvalidArgument = errors.New("interests must not be empty")
	// ErrMissingCredential is returned before any network call when no API key is supplied.
	ErrMissingCredential = errors.New("gemini api key missing")
)

// UpstreamError carries the status and body of a non-2xx Gemini response.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, snippet(e.Body, 512))
}

// TransportError wraps connection, timeout, and read failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gemini %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by the request deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

func snippet(body string, max int) string {
	s := strings.TrimSpace(body)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
