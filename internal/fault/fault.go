// Package fault defines the error taxonomy shared by the mutation
// operations and their helpers.
//
// Every domain failure is a *Error carrying a Code. Callers at the
// operation boundary use CodeOf to classify a (possibly wrapped) error
// and report it as a structured result instead of crashing.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a domain failure.
type Code string

const (
	// MissingField indicates a required payload field was absent.
	MissingField Code = "MISSING_FIELD"

	// InvalidFormat indicates an ID or value did not match its expected shape.
	InvalidFormat Code = "INVALID_FORMAT"

	// DuplicateID indicates a new ID already exists in its family.
	DuplicateID Code = "DUPLICATE_ID"

	// NotFound indicates a record or reference did not resolve.
	NotFound Code = "NOT_FOUND"

	// InvalidTransition indicates a status change the lifecycle does not allow.
	InvalidTransition Code = "INVALID_TRANSITION"

	// InvariantViolation indicates a cross-field rule was broken
	// (single backlog, approval completeness, release not open).
	InvariantViolation Code = "INVARIANT_VIOLATION"

	// ParseError indicates malformed JSON in a payload or data file.
	ParseError Code = "PARSE_ERROR"

	// Internal is used for anything that is not a domain failure.
	Internal Code = "INTERNAL"
)

// Error is a classified domain failure.
type Error struct {
	Code    Code
	Message string

	// Details carries optional structured context for the result payload.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of e with key=value added to Details.
func (e *Error) With(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// CodeOf returns the Code of the first *Error in err's chain, or Internal.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Internal
}

// Is reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	ok := errors.As(err, &fe)
	return fe, ok
}

// Missing reports an absent required field.
func Missing(field string) *Error {
	return &Error{
		Code:    MissingField,
		Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// RefNotFound reports an unresolved reference, e.g. "Feature 'FEAT-009' not found".
func RefNotFound(label, id string) *Error {
	return &Error{
		Code:    NotFound,
		Message: fmt.Sprintf("%s '%s' not found", label, id),
		Details: map[string]any{"ref": id},
	}
}
