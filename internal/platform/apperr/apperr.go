// Package apperr classifies domain errors so callers can decide whether a
// failure blocks the user, degrades silently, or is retried on the next poll.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the error category.
type Kind string

const (
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindNotFound   Kind = "not_found"
	KindTransport  Kind = "transport"
)

// Error is a categorised error with a stable machine-readable code. Two
// *Error values match under errors.Is when their codes are equal, so package
// level sentinels can be wrapped with detail via fmt.Errorf("%w: ...").
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Validation returns a bad-input error.
func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// State returns an illegal-state error.
func State(code, msg string) *Error {
	return &Error{Kind: KindState, Code: code, Message: msg}
}

// NotFound returns a dangling-reference error.
func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

// Transport returns a network or timeout error.
func Transport(code, msg string) *Error {
	return &Error{Kind: KindTransport, Code: code, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps err to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindState:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
