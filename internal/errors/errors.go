// Package errors provides the typed errors shared across the pricing core.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeValidation indicates malformed or out-of-range input
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeNotFound indicates a line item referencing an unknown catalog product
	TypeNotFound Type = "PRODUCT_NOT_FOUND"

	// TypeCalculation indicates an unexpected internal pricing failure
	TypeCalculation Type = "CALCULATION_ERROR"

	// TypeConfig indicates a configuration or rules-file error
	TypeConfig Type = "CONFIG_ERROR"
)

// Error is a domain error carrying enough context to render an
// actionable message: the offending identifier, field, and value
// travel in Context.
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates an error of the given type
func New(errType Type, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a formatted error of the given type
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps a cause with a typed error
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{Type: errType, Message: message, Cause: cause}
}

// Wrapf wraps a cause with a formatted typed error
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsType reports whether err (or anything it wraps) is of the given type
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// Validation creates a validation error
func Validation(message string) *Error {
	return New(TypeValidation, message)
}

// Validationf creates a formatted validation error
func Validationf(format string, args ...interface{}) *Error {
	return Newf(TypeValidation, format, args...)
}

// ProductNotFound creates a not-found error for a catalog lookup
func ProductNotFound(identifier string) *Error {
	return Newf(TypeNotFound, "product not found: %s", identifier).
		WithContext("product_id", identifier)
}

// Calculation creates a calculation error wrapping its cause
func Calculation(message string, cause error) *Error {
	return Wrap(TypeCalculation, message, cause)
}

// Config creates a configuration error wrapping its cause
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}
