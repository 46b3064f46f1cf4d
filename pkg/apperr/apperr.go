// Package apperr holds the error taxonomy shared by the core engine
// packages. Handlers return these as-is and the global Fiber error
// handler translates them into HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrPermission means the access policy denied the action.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a field-scoped, recoverable input error. Code is a
// stable machine-readable token ("duplicate_email", "reason_required", ...).
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation builds a ValidationError.
func Validation(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// IntegrityError wraps an unexpected storage-layer conflict raised inside
// an atomic write. It still rolls the transaction back; callers surface it
// to the user as a validation failure with a descriptive message.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Integrity wraps err as an IntegrityError for the given operation.
func Integrity(op string, err error) *IntegrityError {
	return &IntegrityError{Op: op, Err: err}
}
