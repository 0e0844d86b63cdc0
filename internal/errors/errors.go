package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Lexis error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION" // 400
	ErrForbidden  ErrorCode = "FORBIDDEN"  // 403
	ErrNotFound   ErrorCode = "NOT_FOUND"  // 404
	ErrConflict   ErrorCode = "CONFLICT"   // 409
	ErrInternal   ErrorCode = "INTERNAL"   // 500
)

// LexisError represents a structured error with code, status, and details.
type LexisError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *LexisError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidation creates a 400 error for malformed or missing input.
func NewValidation(msg string) *LexisError {
	return &LexisError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewForbidden creates a 403 error for ownership or permission violations.
func NewForbidden(msg string) *LexisError {
	return &LexisError{
		Code:    ErrForbidden,
		Status:  403,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entity of the given kind.
func NewNotFound(kind, identifier string) *LexisError {
	return &LexisError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewConflict creates a 409 error for duplicate entities.
func NewConflict(msg string) *LexisError {
	return &LexisError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *LexisError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &LexisError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Wrap returns err unchanged if it already is a LexisError, otherwise wraps
// it as INTERNAL. A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var lErr *LexisError
	if stderrors.As(err, &lErr) {
		return lErr
	}
	return NewInternal(err)
}

// Is checks if an error is a LexisError with the given code.
func Is(err error, code ErrorCode) bool {
	var lErr *LexisError
	if stderrors.As(err, &lErr) {
		return lErr.Code == code
	}
	return false
}

// As extracts a LexisError from err.
func As(err error) (*LexisError, bool) {
	var lErr *LexisError
	if stderrors.As(err, &lErr) {
		return lErr, true
	}
	return nil, false
}
