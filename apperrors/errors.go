// Package apperrors defines the error taxonomy shared by the key generator,
// catalog client and search orchestrator.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind categorizes an error for callers and for HTTP status mapping
type Kind string

const (
	KindInputTooLong        Kind = "InputTooLong"
	KindInvalidCharacters   Kind = "InvalidCharacters"
	KindInvalidIdentifier   Kind = "InvalidIdentifier"
	KindInvalidLimit        Kind = "InvalidLimit"
	KindRateLimitExceeded   Kind = "RateLimitExceeded"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindCacheUnavailable    Kind = "CacheUnavailable"
	KindNotFound            Kind = "NotFound"
	KindInternal            Kind = "Internal"
)

// Error is a categorized error with an optional retry hint
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // zero when no hint is available
	Err        error
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

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// IsClientError reports whether the error was caused by caller input.
// Client errors are never retried.
func (e *Error) IsClientError() bool {
	switch e.Kind {
	case KindInputTooLong, KindInvalidCharacters, KindInvalidIdentifier, KindInvalidLimit:
		return true
	}
	return false
}

// HTTPStatus maps the error kind onto the status the HTTP layer returns
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInputTooLong, KindInvalidCharacters, KindInvalidIdentifier, KindInvalidLimit:
		return http.StatusBadRequest
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable, KindCacheUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is comparisons
var (
	ErrInputTooLong        = &Error{Kind: KindInputTooLong, Message: "input too long"}
	ErrInvalidCharacters   = &Error{Kind: KindInvalidCharacters, Message: "invalid characters"}
	ErrInvalidIdentifier   = &Error{Kind: KindInvalidIdentifier, Message: "invalid identifier"}
	ErrInvalidLimit        = &Error{Kind: KindInvalidLimit, Message: "invalid limit"}
	ErrRateLimitExceeded   = &Error{Kind: KindRateLimitExceeded, Message: "rate limit exceeded"}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable, Message: "upstream unavailable"}
	ErrCacheUnavailable    = &Error{Kind: KindCacheUnavailable, Message: "cache unavailable"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
)

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// RateLimited creates a RateLimitExceeded error carrying a retry hint
func RateLimited(message string, retryAfter time.Duration, err error) *Error {
	return &Error{Kind: KindRateLimitExceeded, Message: message, RetryAfter: retryAfter, Err: err}
}

// Unavailable creates an UpstreamUnavailable error
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for uncategorized errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
