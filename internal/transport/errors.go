package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// HTTPError is returned when a request completes with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// ParseError is returned when a 2xx response body is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "invalid JSON response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when no release asset matches, or the release lookup failed.
type NotFoundError struct {
	Repository string
	Err        error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no matching release asset for %s: %v", e.Repository, e.Err)
	}
	return "no matching release asset for " + e.Repository
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

var transientMessages = []string{
	"connection reset",
	"socket hang up",
	"broken pipe",
	"forcibly closed",
	"unexpected eof",
	"no such host",
	"i/o timeout",
	"tls handshake timeout",
}

// IsTransient reports whether err is a connection-level failure that is worth retrying:
// resets, timeouts, DNS failures and connections closed mid-response.
// HTTP status errors and cancellations are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
