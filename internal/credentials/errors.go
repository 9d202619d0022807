package credentials

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeValidation indicates credentials that violate the IEEE length limits
	ErrTypeValidation ErrorType = iota
	// ErrTypeStorage indicates a failure reading or writing the backing file
	ErrTypeStorage
	// ErrTypeParse indicates a malformed credentials file
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeStorage:
		return "Storage Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a credentials validation or storage failure
type Error struct {
	Type    ErrorType // Category of error
	Field   string    // "ssid" or "password" for validation errors
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for one field
func NewValidationError(field, message string) *Error {
	return &Error{
		Type:    ErrTypeValidation,
		Field:   field,
		Message: message,
	}
}

// NewStorageError creates a storage error
func NewStorageError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeStorage,
		Message: message,
		Err:     err,
	}
}

// NewParseError creates a parse error
func NewParseError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

func isType(err error, t ErrorType) bool {
	var credErr *Error
	if errors.As(err, &credErr) {
		return credErr.Type == t
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsStorageError checks if an error is a storage error
func IsStorageError(err error) bool {
	return isType(err, ErrTypeStorage)
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	return isType(err, ErrTypeParse)
}
