// Package faults tags application errors with a stable kind that transport
// layers translate into responses.
package faults

import (
	"errors"
	"net/http"
)

type Kind string

const (
	NotFound     Kind = "not_found"
	InvalidInput Kind = "invalid_input"
	InvalidState Kind = "invalid_state"
	Conflict     Kind = "conflict"
	Forbidden    Kind = "forbidden"
	Internal     Kind = "internal"

	// Unauthenticated means no caller identity was resolved.
	Unauthenticated Kind = "unauthenticated"
)

const internalMessage = "internal server error"

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns Internal for errors that were never tagged.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is safe to show to users; internal details are never leaked.
func PublicMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != Internal {
		return fe.Message
	}
	return internalMessage
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Unauthenticated:
		return http.StatusUnauthorized
	case Conflict, InvalidState, InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
