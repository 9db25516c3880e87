package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind is the closed set of failure categories clients can branch on.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindConflict     ErrorKind = "conflict"
	KindStorage      ErrorKind = "storage"
)

// Error is returned by every service operation. Message is safe to show to the
// user; Err holds the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Anything that is not a *Error counts as a storage failure.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorage
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Unexpected server error."
}

func validationErr(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func unauthorizedErr(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func forbiddenErr(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func conflictErr(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func storageErr(message string, err error) error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// lookupErr turns a repository lookup failure into not-found or storage.
func lookupErr(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr(notFound)
	}
	return storageErr("Database error.", err)
}

// passthrough keeps service errors produced inside a transaction intact and
// wraps anything else as a storage failure.
func passthrough(err error, message string) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return storageErr(message, err)
}
