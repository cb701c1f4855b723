package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTimeout       = errors.New("request timed out")
	ErrEmptyResult   = errors.New("no text extracted")
	ErrMissingAPIKey = errors.New("missing api key")
	ErrProvider      = errors.New("provider error")
	ErrCapture       = errors.New("capture failed")
	ErrUnavailable   = errors.New("service unavailable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// userError carries a user-facing message verbatim while still matching a sentinel
// through errors.Is. The capture screen shows Error() as-is in its alert.
type userError struct {
	msg  string
	kind error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.kind }

// UserError returns an error whose message is shown to the user unchanged and
// which matches kind with errors.Is.
func UserError(kind error, msg string) error {
	return &userError{msg: msg, kind: kind}
}

// UserErrorf is UserError with formatting.
func UserErrorf(kind error, format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...), kind: kind}
}

// WithSuffix appends guidance text to an error message, keeping the chain intact.
func WithSuffix(err error, suffix string) error {
	if err == nil {
		return nil
	}
	return &suffixError{err: err, suffix: suffix}
}

type suffixError struct {
	err    error
	suffix string
}

func (e *suffixError) Error() string { return e.err.Error() + " " + e.suffix }
func (e *suffixError) Unwrap() error { return e.err }

// IsRetryable reports whether a failed extraction is worth repeating within the same call.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
