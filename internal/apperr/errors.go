// Package apperr defines the error kinds shared by services and handlers.
package apperr

import (
	"errors"
	"strings"
)

// Kinds. Compare with errors.Is.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrLookupUnavailable = errors.New("breach lookup unavailable")
)

// Error pairs a kind with a message that is safe to show to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func BadRequest(msg string) error      { return &Error{Kind: ErrBadRequest, Message: msg} }
func Unauthenticated(msg string) error { return &Error{Kind: ErrUnauthenticated, Message: msg} }
func NotFound(msg string) error        { return &Error{Kind: ErrNotFound, Message: msg} }
func Conflict(msg string) error        { return &Error{Kind: ErrConflict, Message: msg} }

// FieldError is a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidRecordError is returned when a record fails store level validation.
type InvalidRecordError struct {
	Fields []FieldError
}

func (e *InvalidRecordError) Error() string {
	return "invalid record: " + strings.Join(e.Messages(), ", ")
}

func (e *InvalidRecordError) Unwrap() error { return ErrInvalidRecord }

// Messages returns the per-field messages in order.
func (e *InvalidRecordError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}

// PublicMessage returns the client-facing message of err, or fallback when err
// carries none.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
