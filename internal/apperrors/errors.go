// Package apperrors provides the control plane's error taxonomy: a single
// typed error carrying a stable code, an HTTP status hint, and an optional
// wrapped cause.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a category of failure within the control plane.
type Code string

const (
	// CodeValidation marks a malformed scenario, flow graph, or request.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound marks a missing scenario, flow, session, or execution.
	CodeNotFound Code = "NOT_FOUND"
	// CodeExecutionFailed marks a step or node that failed during a run.
	CodeExecutionFailed Code = "EXECUTION_FAILED"
	// CodeRegexUnsafe marks a `matches` condition pattern rejected by the
	// ReDoS safety gate.
	CodeRegexUnsafe Code = "REGEX_UNSAFE"
	// CodeTimeout marks a flow or scenario execution that exceeded its
	// configured maxExecutionTime.
	CodeTimeout Code = "TIMEOUT"
	// CodeInternal marks an unexpected failure with no more specific code.
	CodeInternal Code = "INTERNAL"
)

// Error is the control plane's structured error type.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

// Error implements the error interface. When Details carries a "reason"
// entry (Validation, RegexUnsafe), it is appended so the human-readable
// message is self-contained without the caller reaching into Details.
func (e *Error) Error() string {
	msg := e.Message
	if reason, ok := e.Details["reason"].(string); ok && reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair to the error's Details map.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newErr(code Code, message string, httpStatus int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus}
}

func wrapErr(code Code, message string, httpStatus int, err error) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Validation reports a malformed scenario, flow graph, or request field.
func Validation(field, reason string) *Error {
	return newErr(CodeValidation, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// NotFound reports a missing entity by resource kind and id.
func NotFound(resource, id string) *Error {
	return newErr(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// ExecutionFailed reports a step or node that failed while running.
func ExecutionFailed(operation string, err error) *Error {
	return wrapErr(CodeExecutionFailed, "execution failed", http.StatusUnprocessableEntity, err).
		WithDetails("operation", operation)
}

// RegexUnsafe reports a `matches` condition pattern rejected before it was
// ever handed to the backtracking regex engine.
func RegexUnsafe(pattern, reason string) *Error {
	return newErr(CodeRegexUnsafe, "regex pattern rejected as unsafe", http.StatusBadRequest).
		WithDetails("pattern", pattern).
		WithDetails("reason", reason)
}

// Timeout reports an operation that exceeded its configured deadline.
func Timeout(operation string) *Error {
	return newErr(CodeTimeout, "operation timed out", http.StatusGatewayTimeout).
		WithDetails("operation", operation)
}

// Internal reports an unexpected failure with no more specific category.
func Internal(message string, err error) *Error {
	return wrapErr(CodeInternal, message, http.StatusInternalServerError, err)
}

// As extracts an *Error from an error chain, if present.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Is reports whether err (or anything it wraps) is an *Error with the given
// code.
func Is(err error, code Code) bool {
	appErr := As(err)
	return appErr != nil && appErr.Code == code
}

// HTTPStatus returns the HTTP status hint carried by err, or 500 if err is
// not an *Error.
func HTTPStatus(err error) int {
	if appErr := As(err); appErr != nil {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
