// Package apperr classifies failures the chat core can report. Only the
// Message of an Error ever reaches a client; Cause stays in the logs.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindPersistence    Kind = "persistence"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error without a cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error that keeps cause for errors.Is/As.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Authentication(msg string, cause error) error {
	return Wrap(KindAuthentication, msg, cause)
}

func Authorization(msg string) error {
	return New(KindAuthorization, msg)
}

func Validation(msg string) error {
	return New(KindValidation, msg)
}

func Persistence(msg string, cause error) error {
	return Wrap(KindPersistence, msg, cause)
}

func NotFound(msg string) error {
	return New(KindNotFound, msg)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
