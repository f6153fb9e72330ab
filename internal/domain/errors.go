package domain

import "fmt"

// ValidationError reports a field constraint violation on a domain entity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrMissingField builds a ValidationError for an absent required field.
func ErrMissingField(field string) error {
	return &ValidationError{Field: field, Reason: "required"}
}

// ErrFieldTooLong builds a ValidationError for a length cap violation.
func ErrFieldTooLong(field string, max int) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("exceeds %d characters", max)}
}

// ErrInvalidValue builds a ValidationError for an out-of-enum value.
func ErrInvalidValue(field, value string) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("unknown value %q", value)}
}
