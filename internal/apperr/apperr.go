// Package apperr carries the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers.
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	Unauthenticated
	Forbidden
	NotFound
	InsufficientStock
	Conflict
)

var kindNames = map[Kind]string{
	Internal:          "internal",
	InvalidInput:      "invalid_input",
	Unauthenticated:   "unauthenticated",
	Forbidden:         "forbidden",
	NotFound:          "not_found",
	InsufficientStock: "insufficient_stock",
	Conflict:          "conflict",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure with a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Fields maps request field names to validation messages.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err, keeping it reachable through errors.Is / errors.As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Invalid returns an InvalidInput error listing per-field problems.
func Invalid(fields map[string]string) *Error {
	return &Error{Kind: InvalidInput, Message: "Validation failed", Fields: fields}
}

// FieldsOf returns the field messages of the first *Error in err's chain.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind onto the status code the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InsufficientStock, Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
