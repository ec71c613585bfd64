package downloads

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrDuplicateID is returned when a job with the same id is already active.
	ErrDuplicateID = errors.New("download already active")
	// ErrTooManyRedirects is returned when the redirect chain exceeds the engine's cap.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrCancelled is returned by Download when the job was cancelled.
	ErrCancelled = errors.New("download cancelled")
	// ErrIncomplete means the body ended before the advertised Content-Length.
	// It wraps io.ErrUnexpectedEOF so transport.IsTransient treats it as a hang-up.
	ErrIncomplete = fmt.Errorf("download incomplete: %w", io.ErrUnexpectedEOF)
)

// StatusError is a terminal non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}
