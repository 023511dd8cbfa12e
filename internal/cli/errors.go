package cli

import (
	"errors"
	"fmt"
	"strings"

	cferrors "github.com/unionhall/claimflow/internal/errors"
)

// CLIError is an error with an exit code and optional suggestion.
// It coexists with the shared errors.Error type: service-layer errors
// carry their own exit codes, CLIError covers command-level failures.
type CLIError struct {
	Code       int
	Message    string
	Cause      error
	Suggestion string
}

func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// FormatError returns the error message with suggestion if present
func (e *CLIError) FormatError() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.Error())
	if e.Suggestion != "" {
		b.WriteString("\n\nSuggestion: ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

// ExitCode returns the exit code for any error.
// Supports both CLIError and the shared errors.Error type.
func ExitCode(err error) int {
	// Check for shared error type first
	var sharedErr *cferrors.Error
	if errors.As(err, &sharedErr) {
		return sharedErr.CLIExitCode()
	}

	var cerr *CLIError
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return ExitGeneralError
}

// FormatErrorMessage returns formatted error with suggestion if available.
// Supports both CLIError and the shared errors.Error type.
func FormatErrorMessage(err error) string {
	// Check for shared error type first
	var sharedErr *cferrors.Error
	if errors.As(err, &sharedErr) {
		var b strings.Builder
		b.WriteString("Error: ")
		b.WriteString(sharedErr.Error())
		if sharedErr.Suggestion != "" {
			b.WriteString("\n\nSuggestion: ")
			b.WriteString(sharedErr.Suggestion)
		}
		return b.String()
	}

	var cerr *CLIError
	if errors.As(err, &cerr) {
		return cerr.FormatError()
	}
	return "Error: " + err.Error()
}

// Error constructors with proper exit codes

// ErrInvalidArgs creates an error for invalid arguments (exit code 2)
func ErrInvalidArgs(format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitInvalidArgs,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrInvalidArgsWithSuggestion creates an error for invalid arguments with a suggestion
func ErrInvalidArgsWithSuggestion(suggestion, format string, args ...interface{}) error {
	return &CLIError{
		Code:       ExitInvalidArgs,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	}
}

// ErrNotFound creates an error for missing resources (exit code 3)
func ErrNotFound(format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrNotFoundWithSuggestion creates a not found error with a suggestion
func ErrNotFoundWithSuggestion(suggestion, format string, args ...interface{}) error {
	return &CLIError{
		Code:       ExitNotFound,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	}
}

// ErrWorkflowRejected creates an error for refused transitions (exit code 4)
func ErrWorkflowRejected(format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitWorkflowRejected,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrWorkflowRejectedWithSuggestion creates a workflow rejection with a suggestion
func ErrWorkflowRejectedWithSuggestion(suggestion, format string, args ...interface{}) error {
	return &CLIError{
		Code:       ExitWorkflowRejected,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	}
}

// ErrDatabase creates an error for database operations (exit code 5)
func ErrDatabase(cause error, format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitDBError,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// ErrDatabaseWithSuggestion creates a database error with a suggestion
func ErrDatabaseWithSuggestion(cause error, suggestion, format string, args ...interface{}) error {
	return &CLIError{
		Code:       ExitDBError,
		Message:    fmt.Sprintf(format, args...),
		Cause:      cause,
		Suggestion: suggestion,
	}
}

// ErrConcurrentConflict creates an error for concurrent modification (exit code 6)
func ErrConcurrentConflict(format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitConcurrentConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrGeneral creates a general error (exit code 1)
func ErrGeneral(format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitGeneralError,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrGeneralWithCause creates a general error with a cause
func ErrGeneralWithCause(cause error, format string, args ...interface{}) error {
	return &CLIError{
		Code:    ExitGeneralError,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Common suggestions
const (
	SuggestRunInit     = "Run 'claimflow init' to create a new database."
	SuggestCheckKey    = "Check the claim key format. It should be like ORG-123."
	SuggestListOrgs    = "Run 'claimflow org list' to see available organizations."
	SuggestListClaims  = "Run 'claimflow claim list' to see available claims."
	SuggestTransitions = "Run 'claimflow claim transitions %s' to see which moves are allowed."
	SuggestListSignals = "Run 'claimflow signal list %s' to see active signals on the claim."
	SuggestWaitOrRetry = "Another actor changed the claim at the same time. Try again."
)
