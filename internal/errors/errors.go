// Package errors provides shared error types that map to both CLI exit
// codes and HTTP status codes, so the CLI and the API surface the same
// failure taxonomy.
package errors

import (
	"fmt"
	"net/http"
)

// Kind represents the category of an error, which determines both the
// CLI exit code and HTTP status code.
type Kind int

const (
	// KindInvalidArgs represents invalid input arguments.
	// CLI exit code: 2, HTTP status: 400 Bad Request
	KindInvalidArgs Kind = iota

	// KindNotFound represents a missing resource.
	// CLI exit code: 3, HTTP status: 404 Not Found
	KindNotFound

	// KindWorkflowRejected represents a transition the workflow engine
	// refused (illegal move, role, dwell, or signal gate).
	// CLI exit code: 4, HTTP status: 422 Unprocessable Entity
	KindWorkflowRejected

	// KindConcurrentConflict represents a lost compare-and-swap race on
	// a claim's status.
	// CLI exit code: 6, HTTP status: 409 Conflict
	KindConcurrentConflict

	// KindInternal represents an internal/database error.
	// CLI exit code: 5, HTTP status: 500 Internal Server Error
	KindInternal

	// KindGeneral represents a general error that doesn't fit other
	// categories. CLI exit code: 1, HTTP status: 500
	KindGeneral
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgs:
		return "InvalidArgs"
	case KindNotFound:
		return "NotFound"
	case KindWorkflowRejected:
		return "WorkflowRejected"
	case KindConcurrentConflict:
		return "ConcurrentConflict"
	case KindInternal:
		return "Internal"
	case KindGeneral:
		return "General"
	default:
		return "Unknown"
	}
}

// Error is a structured error with kind, message, cause, and an
// optional stable reason code (populated for workflow rejections so
// API clients can branch without string matching).
type Error struct {
	Kind       Kind
	Message    string
	ReasonCode string
	Cause      error
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CLIExitCode returns the appropriate CLI exit code for this error.
func (e *Error) CLIExitCode() int {
	switch e.Kind {
	case KindInvalidArgs:
		return 2
	case KindNotFound:
		return 3
	case KindWorkflowRejected:
		return 4
	case KindInternal:
		return 5
	case KindConcurrentConflict:
		return 6
	default:
		return 1
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidArgs:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindWorkflowRejected:
		return http.StatusUnprocessableEntity
	case KindConcurrentConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithSuggestion adds a suggestion to the error and returns it for chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// Constructor functions

// NotFound creates an error for missing resources.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgs creates an error for invalid arguments.
func InvalidArgs(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgs, Message: fmt.Sprintf(format, args...)}
}

// WorkflowRejected creates an error for a refused transition. The code
// is the engine's stable reason code, the message its human-readable
// explanation (surfaced verbatim to API clients).
func WorkflowRejected(code, message string) *Error {
	return &Error{Kind: KindWorkflowRejected, ReasonCode: code, Message: message}
}

// ConcurrentConflict creates an error for a lost optimistic-concurrency race.
func ConcurrentConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConcurrentConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an error for internal/database errors.
func Internal(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// General creates a general error.
func General(format string, args ...interface{}) *Error {
	return &Error{Kind: KindGeneral, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a specific kind and message.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WrapInternal wraps an error as an internal error.
func WrapInternal(err error, format string, args ...interface{}) *Error {
	return Wrap(err, KindInternal, format, args...)
}

// GetKind extracts the Kind from an error, returning KindGeneral if
// the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindGeneral
}

// GetCLIExitCode extracts the CLI exit code from an error.
func GetCLIExitCode(err error) int {
	if e, ok := err.(*Error); ok {
		return e.CLIExitCode()
	}
	return 1
}

// GetHTTPStatus extracts the HTTP status code from an error.
func GetHTTPStatus(err error) int {
	if e, ok := err.(*Error); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Is returns true if the error is of the specified kind.
func Is(err error, kind Kind) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == kind
	}
	return false
}
