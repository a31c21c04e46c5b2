// Package errors defines the closed error taxonomy for BingoCast operations.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the failure class of a domain error.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInvalidState        Kind = "invalid_state"
	KindVerification        Kind = "verification"
	KindUpstreamTransient   Kind = "upstream_transient"
	KindUpstreamRejection   Kind = "upstream_rejection"
	KindCompensationFailure Kind = "compensation_failure"
)

// Error is a classified domain error. The Kind drives HTTP mapping and
// retry policy; Message is safe to surface to callers.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind so sentinel comparisons work across wrapping.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return de.Kind == e.Kind && (de.Message == "" || de.Message == e.Message)
	}
	return false
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidation reports bad input shape or values. Never retried.
func NewValidation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NewNotFound reports a missing episode, event definition, or card.
func NewNotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// NewInvalidState reports an operation against an entity in the wrong
// lifecycle state (firing on a non-live episode, duplicate entry).
func NewInvalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

// NewVerification reports a signature or timestamp failure on an inbound
// trigger. Rejected outright, never retried, no dispatch side effects.
func NewVerification(format string, args ...any) *Error {
	return newError(KindVerification, format, args...)
}

// NewUpstreamTransient reports a collaborator timeout or network failure.
// Retried with bounded exponential backoff.
func NewUpstreamTransient(cause error, format string, args ...any) *Error {
	e := newError(KindUpstreamTransient, format, args...)
	e.cause = cause
	return e
}

// NewUpstreamRejection reports a deterministic collaborator failure. Not
// retried, surfaced to the caller.
func NewUpstreamRejection(cause error, format string, args ...any) *Error {
	e := newError(KindUpstreamRejection, format, args...)
	e.cause = cause
	return e
}

// NewCompensationFailure reports that compensation itself failed. Logged
// as requiring manual intervention, never silently dropped.
func NewCompensationFailure(cause error, format string, args ...any) *Error {
	e := newError(KindCompensationFailure, format, args...)
	e.cause = cause
	return e
}

// KindOf extracts the Kind from err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsRetryable reports whether err may be retried against the upstream.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUpstreamTransient
}

// HTTPStatus maps a domain error to the status code trigger sources and
// API callers receive.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindVerification:
		return http.StatusUnauthorized
	case KindUpstreamTransient, KindUpstreamRejection:
		return http.StatusBadGateway
	case KindCompensationFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
