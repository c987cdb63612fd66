package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeStoreCorrupt   = "STORE_CORRUPT"
	CodeStoreVersion   = "STORE_VERSION"
	CodeSessionCorrupt = "SESSION_CORRUPT"
	CodeIndexDuplicate = "INDEX_DUPLICATE"
	CodeCommandInvalid = "COMMAND_INVALID"
	CodeArchiveError   = "ARCHIVE_ERROR"
	CodeBudgetInvalid  = "BUDGET_INVALID"
	CodeNotInitialized = "NOT_INITIALIZED"
	CodeEntryNotFound  = "ENTRY_NOT_FOUND"
)

// MemError is a structured error with a code and actionable suggestion.
type MemError struct {
	Code       string // machine-readable code (e.g. STORE_CORRUPT)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *MemError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *MemError) Unwrap() error {
	return e.Err
}

// New creates a MemError with the given code and message.
func New(code, message string) *MemError {
	return &MemError{Code: code, Message: message}
}

// Newf creates a MemError with a formatted message.
func Newf(code, format string, args ...interface{}) *MemError {
	return &MemError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a MemError wrapping an existing error.
func Wrap(code, message string, err error) *MemError {
	return &MemError{Code: code, Message: message, Err: err}
}

// WithSuggestion returns a copy with the suggestion set.
func (e *MemError) WithSuggestion(suggestion string) *MemError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *MemError) Is(target error) bool {
	var me *MemError
	if errors.As(target, &me) {
		return e.Code == me.Code
	}
	return false
}

// AsCode extracts the MemError code from an error, or "" if not a MemError.
func AsCode(err error) string {
	var me *MemError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not a MemError.
func Suggestion(err error) string {
	var me *MemError
	if errors.As(err, &me) {
		return me.Suggestion
	}
	return ""
}
