package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// NewValidationError wraps ErrValidation with a field-level detail message.
func NewValidationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// ErrUnauthorized indicates the remote API rejected our credentials (401).
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the remote API refused access (403). For the
// accounting tenant this means the organisation was disconnected remotely.
var ErrForbidden = errors.New("forbidden")

// ErrRateLimited indicates the remote API's 429 retry budget is exhausted.
var ErrRateLimited = errors.New("rate limited")

// HTTPError carries the status code and raw body of a non-2xx remote
// response. The body is kept verbatim so callers can classify remote
// validation failures that the API only reports as free text.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote API returned status %d: %s", e.StatusCode, e.Body)
}

// ExportError is a user-facing, recoverable export failure: the end user can
// correct the situation (unlock the period, pick a valid account code, etc.).
// The wrapped cause, when present, is kept for diagnostics only.
type ExportError struct {
	Message string
	Err     error
}

func NewExportError(message string, cause error) *ExportError {
	return &ExportError{Message: message, Err: cause}
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *ExportError) Unwrap() error { return e.Err }

// NotAllowedError is raised when the remote document is in a state that
// forbids the requested mutation (already paid or authorised). Callers log it
// at warning level and still acknowledge the triggering event.
type NotAllowedError struct {
	Message string
}

func NewNotAllowedError(message string) *NotAllowedError {
	return &NotAllowedError{Message: message}
}

func (e *NotAllowedError) Error() string { return e.Message }
