package litetable

import (
	"errors"
	"fmt"
)

var (
	// ErrBuilderState is returned when a required configuration step was skipped.
	ErrBuilderState = errors.New("builder state")
	// ErrStoreWrite wraps a failure of the store while applying mutations.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreRead wraps a failure of the store while executing or iterating a scan.
	ErrStoreRead = errors.New("store read failed")
	// ErrSchemaConflict is returned when creating a table that already exists.
	ErrSchemaConflict = errors.New("schema conflict")
	// ErrTableNotFound is returned by stores for operations on unknown tables.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableDisabled is returned by stores for I/O against a disabled table.
	ErrTableDisabled = errors.New("table disabled")
)

// Error wraps a sentinel error with additional context and an optional cause.
type Error struct {
	err     error  // The underlying sentinel error
	context string // Additional error context
	cause   error  // The collaborator failure, if any
}

// Error satisfies the error interface
func (e *Error) Error() string {
	msg := e.err.Error()
	if e.context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.context)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.err}
	}
	return []error{e.err, e.cause}
}

// NewError creates a new error with context
func NewError(err error, format string, args ...interface{}) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
	}
}

// WrapError creates a new error with context that preserves the original cause.
func WrapError(err, cause error, format string, args ...interface{}) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}
