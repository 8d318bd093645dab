package campus

import (
	"errors"
	"strings"

	"campus/internal/store"
)

// ErrAlreadyVoted is returned when an authenticated user votes twice on one poll.
var ErrAlreadyVoted = errors.New("already voted on this poll")

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// FieldMap returns the messages keyed by field name.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// NotFoundError reports a missing entity. It matches store.ErrNotFound.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }
