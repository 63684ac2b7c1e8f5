package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Storage errors
	ErrPersistence ErrorCode = "PERSISTENCE_ERROR"

	// Input errors
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// LedgerError represents a balance ledger error
type LedgerError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError
func NewLedgerError(code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a LedgerError
func WrapError(code ErrorCode, message string, err error) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewPersistenceError wraps a backend failure for the named operation
func NewPersistenceError(op string, err error) *LedgerError {
	return WrapError(ErrPersistence, op+" failed", err)
}

// IsLedgerError checks if an error is a LedgerError and has a specific code
func IsLedgerError(err error, code ErrorCode) bool {
	var ledgerErr *LedgerError
	if !As(err, &ledgerErr) {
		return false
	}
	return ledgerErr.Code == code
}

// IsPersistenceError reports whether err carries a backend failure
func IsPersistenceError(err error) bool {
	return IsLedgerError(err, ErrPersistence)
}

// As finds the first LedgerError in err's chain
func As(err error, target **LedgerError) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.As(err, target)
}
