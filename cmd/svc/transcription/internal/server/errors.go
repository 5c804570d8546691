package server

import (
	"fmt"

	"github.com/coachloop/backend/libs/errors"
)

// ErrNotFound is returned when the requested session does not exist.
var ErrNotFound = errors.New("transcription: session not found")

// ErrForbidden is returned when the session exists but belongs to a
// different account.
var ErrForbidden = errors.New("transcription: access denied")

// ErrTranscriptNotAvailable is returned when an export or speaker operation
// is requested before the session has a stored transcript.
var ErrTranscriptNotAvailable = errors.New("transcription: transcript not available")

// ErrReuploadRequired is returned from Retry when the original audio has
// aged out of storage and the client must upload it again.
var ErrReuploadRequired = errors.New("transcription: audio no longer stored, re-upload required")

// ValidationError indicates a request the client can correct.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "transcription: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError returns true if the cause of err is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// QuotaError indicates the account is over its plan limit for the attempted
// action.
type QuotaError struct {
	Reason string
}

func (e *QuotaError) Error() string {
	return "transcription: " + e.Reason
}

// IsQuotaError returns true if the cause of err is a QuotaError.
func IsQuotaError(err error) bool {
	_, ok := errors.Cause(err).(*QuotaError)
	return ok
}
