// Package apperrors defines the coded error taxonomy shared by every layer of
// the onboarding service. Handlers map codes onto transport status codes; the
// workflow engine only ever produces these codes, so callers can always tell
// a bad request from a state-machine guard failure.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	CodeValidation = "validation" // malformed or missing input, no state mutated
	CodeNotFound   = "not_found"  // unknown id
	CodeConflict   = "conflict"   // operation not legal for the current status
	CodeAnalysis   = "analysis"   // stage analyzer gateway failure
	CodeInternal   = "internal"   // everything else
)

// Error is a coded application error.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with the given code and formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation reports a malformed field.
func Validation(field, message string) *Error {
	return Newf(CodeValidation, "%s: %s", field, message)
}

// NotFound reports an unknown resource id.
func NotFound(resource, id string) *Error {
	return Newf(CodeNotFound, "%s %s not found", resource, id)
}

// Conflict reports an operation that is not legal for the current state.
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// Conflictf reports a formatted state conflict.
func Conflictf(format string, args ...any) *Error {
	return Newf(CodeConflict, format, args...)
}

// Analysis reports a stage analyzer gateway failure.
func Analysis(err error, message string) *Error {
	return Wrap(err, CodeAnalysis, message)
}

// Code returns the application error code for err, or CodeInternal when err
// carries no code.
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Message returns the human-readable message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus maps an application error to its HTTP status code.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeAnalysis:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
