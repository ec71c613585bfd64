package updater

import (
	"errors"
	"fmt"
)

// Error codes for update operations. They reach the renderer unchanged.
const (
	ErrCodeInvalidState   = "INVALID_STATE"
	ErrCodeCheckFailed    = "CHECK_FAILED"
	ErrCodeNoUpdate       = "NO_UPDATE"
	ErrCodeDownloadFailed = "DOWNLOAD_FAILED"
	ErrCodeAssetNotFound  = "ASSET_NOT_FOUND"
	ErrCodeInstallFailed  = "INSTALL_FAILED"
	ErrCodeDisabled       = "DISABLED"
	ErrCodeNoUpdateInfo   = "NO_UPDATE_INFO"
	ErrCodeNotDownloading = "NOT_DOWNLOADING"
)

// Error is an updater failure with a machine-readable code and a message fit
// for the user.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.describe()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so callers can test
// errors.Is(err, &Error{Code: ErrCodeDisabled}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) describe() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var updateErr *Error
	if errors.As(err, &updateErr) {
		return updateErr.Code
	}
	return ""
}

// Describe returns the user-facing text of err: for an *Error in the chain, its
// message and cause without the code prefix; otherwise err.Error().
func Describe(err error) string {
	var updateErr *Error
	if errors.As(err, &updateErr) {
		return updateErr.describe()
	}
	return err.Error()
}
