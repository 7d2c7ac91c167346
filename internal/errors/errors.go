// Package errors provides shared error types for the Snusbase client and lookup service.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty for sensitive data)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DecodeError is returned when the API answers with a body that is not valid JSON.
type DecodeError struct {
	Endpoint string // API endpoint path, e.g. "/data/search"
	Status   int    // HTTP status of the response
	Body     string // truncated response body for debugging
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("decode %s response (status %d): %v: %s", e.Endpoint, e.Status, e.Err, e.Body)
	}
	return fmt.Sprintf("decode %s response (status %d): %v", e.Endpoint, e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsDecode returns true if err is or wraps a DecodeError.
func IsDecode(err error) bool {
	var d *DecodeError
	return errors.As(err, &d)
}
