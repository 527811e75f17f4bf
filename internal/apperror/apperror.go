// Package apperror classifies failures into the three outcomes callers can
// act on: the thing does not exist, the request was wrong, or we broke.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindBadRequest Kind = "BAD_REQUEST"
	KindInternal   Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func NotFound(cause error, format string, args ...any) *Error {
	return newError(KindNotFound, cause, format, args...)
}

func BadRequest(cause error, format string, args ...any) *Error {
	return newError(KindBadRequest, cause, format, args...)
}

func Internal(cause error, format string, args ...any) *Error {
	return newError(KindInternal, cause, format, args...)
}

// KindOf reports the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Error()
	}
	if appErr != nil && appErr.Message != "" {
		return appErr.Message
	}
	return "internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
