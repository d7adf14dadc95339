// Package validation checks request fields at the HTTP boundary against the
// credential store's column limits.
package validation

import (
	"fmt"
	"unicode/utf8"
)

// Column limits of the credential store.
const (
	MaxUsernameLen   = 30
	MaxEmailLen      = 50
	MaxDeviceNameLen = 50
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func required(errs []FieldError, field, value string) []FieldError {
	if value == "" {
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	}
	return errs
}

func maxLen(errs []FieldError, field, value string, limit int) []FieldError {
	if utf8.RuneCountInString(value) > limit {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, limit)})
	}
	return errs
}
