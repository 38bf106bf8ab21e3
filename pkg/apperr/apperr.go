// Package apperr defines the error taxonomy shared by the domain services
// and its mapping onto HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the transport layer
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, "VALIDATION_ERROR", format, args...)
}

// NotFound reports a missing resource, e.g. NotFound("meeting %s", id)
func NotFound(format string, args ...any) *Error {
	e := newError(KindNotFound, "RESOURCE_NOT_FOUND", format, args...)
	e.Message += " not found"
	return e
}

// Conflict reports a request that clashes with current state
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, "RESOURCE_CONFLICT", format, args...)
}

// Unauthorized reports a missing or invalid identity
func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, "UNAUTHORIZED", format, args...)
}

// Forbidden reports an identity without rights over the resource
func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, "FORBIDDEN", format, args...)
}

// Unavailable reports a timeout or cancelled store operation
func Unavailable(cause error) *Error {
	return &Error{Kind: KindUnavailable, Code: "SERVICE_UNAVAILABLE", Message: "service unavailable", Err: cause}
}

// Internal wraps an unexpected failure
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: message, Err: cause}
}

// KindOf classifies any error. Context deadlines and cancellations are
// reported as KindUnavailable; unclassified errors as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	return KindInternal
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps err onto a status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a client. Internal errors
// are scrubbed unless expose is set.
func PublicMessage(err error, expose bool) string {
	kind := KindOf(err)
	switch kind {
	case KindInternal:
		if expose {
			return err.Error()
		}
		return "internal server error"
	case KindUnavailable:
		var e *Error
		if errors.As(err, &e) {
			return e.Message
		}
		return "service unavailable"
	default:
		var e *Error
		if errors.As(err, &e) {
			return e.Message
		}
		return err.Error()
	}
}

// Wrap annotates err with msg, keeping its classification. A nil err
// stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
