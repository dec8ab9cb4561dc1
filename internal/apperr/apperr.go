// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindInvalidCredential Kind = "invalid_credential"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalid           Kind = "invalid_request"
	KindConflict          Kind = "conflict"
	KindQuizNotStarted    Kind = "quiz_not_started"
	KindQuizEnded         Kind = "quiz_ended"
	KindAlreadySubmitted  Kind = "already_submitted"
	KindMalformedResponse Kind = "malformed_response"
	KindInternal          Kind = "internal"
)

// Error carries a stable kind, a caller-safe message and an optional cause.
// The cause is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(what string) *Error {
	return Newf(KindNotFound, "%s not found", what)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func Invalid(message string) *Error {
	return New(KindInvalid, message)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal server error", err)
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// From converts any error into an *Error. Foreign errors become internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated, KindInvalidCredential:
		return http.StatusUnauthorized
	case KindForbidden, KindQuizNotStarted, KindQuizEnded:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid, KindMalformedResponse:
		return http.StatusBadRequest
	case KindConflict, KindAlreadySubmitted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
