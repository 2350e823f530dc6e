// Package apperr defines the engine's error taxonomy: machine-readable codes
// carried on a single error type, with a mapping to HTTP status codes so
// handlers never inspect error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeValidation covers malformed input: bad party size, note too long,
	// extension minutes out of range.
	CodeValidation Code = "VALIDATION"

	// CodeAuthRequired means the caller presented no usable identity.
	CodeAuthRequired Code = "AUTH_REQUIRED"

	// CodeForbidden means the caller's role does not permit the action.
	CodeForbidden Code = "FORBIDDEN"

	// CodeNotFound means the event or request does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// Conflict subtypes.
	CodeDuplicateRequest       Code = "DUPLICATE_REQUEST"
	CodeCapacityExceeded       Code = "CAPACITY_EXCEEDED"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeHoldExpired            Code = "HOLD_EXPIRED"

	// CodeInternal covers store and other infrastructure failures. Callers
	// may retry; the engine itself never does.
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps a code to its transport status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateRequest, CodeCapacityExceeded,
		CodeInvalidStateTransition, CodeHoldExpired:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the engine's error type. Message is safe to return to callers;
// Err, when set, carries the underlying cause for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an error with a code and a caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, or CodeInternal if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// MessageOf returns the caller-safe message from err. Errors without a code
// collapse to a generic message so internal details never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
