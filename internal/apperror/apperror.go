// Package apperror provides the coded errors that cross the linkvault core boundary.
//
// Storage and validation failures are translated into one of these codes before they
// leave the repository or service layer, so handlers can switch on the code alone:
//
//	var appErr *apperror.Error
//	if errors.As(err, &appErr) {
//	    http.Error(w, appErr.Message, appErr.HTTPStatus())
//	}
//
// Ownership failures are reported as NotFound, never as a separate forbidden code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConflict           Code = "CONFLICT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeTimeout            Code = "TIMEOUT"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeCodeSpaceExhausted Code = "CODE_SPACE_EXHAUSTED"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the status a transport should answer with for this code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Transient reports whether a read may be retried as-is. Writes that failed with a
// transient code have an unknown outcome and must re-query state before retrying.
func (c Code) Transient() bool {
	return c == CodeTimeout || c == CodeUnavailable
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

var (
	ErrInvalidInput       = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrTimeout            = &Error{Code: CodeTimeout, Message: "storage timeout"}
	ErrUnavailable        = &Error{Code: CodeUnavailable, Message: "storage unavailable"}
	ErrCodeSpaceExhausted = &Error{Code: CodeCodeSpaceExhausted, Message: "short code space exhausted"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

func InvalidInputf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
