// Package dErrors carries coded domain errors across service boundaries.
// Services translate store sentinels into coded errors here; the HTTP layer
// maps codes to status lines without inspecting error text.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks malformed or out-of-range caller input.
	CodeValidation Code = "validation_error"
	// CodeInvariantViolation marks an entity that failed construction-time
	// invariants. Services usually re-surface it as CodeValidation.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound marks a missing resource.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks a missing or unverifiable identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an identified caller without the required rights.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks duplicate submissions and lost concurrency races.
	CodeConflict Code = "conflict"
	// CodeInvalidTransition marks an illegal lifecycle edge.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeInvalidState marks an operation on a record whose current state
	// forbids it.
	CodeInvalidState Code = "invalid_state"
	// CodeUnavailable marks a dependency timeout or outage; retryable.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks everything else. Its message is never shown to
	// callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a coded error with a caller-facing message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Cause: err}
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf extracts the code of err, defaulting to CodeInternal for uncoded
// errors.
func CodeOf(err error) Code {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message of err. Internal and uncoded
// errors yield a generic line so implementation details never leak.
func MessageOf(err error) string {
	var dErr *Error
	if errors.As(err, &dErr) && dErr.Code != CodeInternal {
		return dErr.Message
	}
	return "internal server error"
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidTransition, CodeInvalidState:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
