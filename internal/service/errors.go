package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("not found")
	// ErrNoActiveGoal indicates no goal is in force for the requested date
	ErrNoActiveGoal = errors.New("no active goal for date")
	// ErrNoActiveProfile indicates the user has no metabolic profile
	ErrNoActiveProfile = errors.New("no active metabolic profile")
)

// FieldViolation is one field-level validation failure.
type FieldViolation struct {
	Field   string
	Message string
	Code    string
}

// ValidationError aggregates every field failure of a request so clients
// can fix all of them in one round trip. Nothing is stored when it fires.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add appends a violation and returns the error for chaining.
func (e *ValidationError) add(field, message, code string) *ValidationError {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message, Code: code})
	return e
}

// orNil returns nil when no violations were collected.
func (e *ValidationError) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
