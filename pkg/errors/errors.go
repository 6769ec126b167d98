// Package errors provides structured error types for the vibetiles server.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - A single mapping from error code to HTTP status
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into two groups. Codes that reach the client:
//   - UNKNOWN_VIBE: the requested vibe is not in the registry (404)
//   - UPSTREAM_UNAVAILABLE: the upstream style or tile source failed (502)
//   - INVALID_INPUT: malformed request parameters (400)
//   - INTERNAL_ERROR: anything unexpected (500)
//
// Codes that never reach the client and only appear in logs:
//   - TRANSFORM_FAILURE: the pixel transform failed; the tile is served untransformed
//   - CACHE_WRITE_FAILURE: the tile could not be persisted; the tile is still served
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownVibe, "unknown vibe %q", id)
//	if errors.Is(err, errors.ErrCodeUnknownVibe) {
//	    // Handle not found
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeUpstreamUnavailable, origErr, "fetch tile %s", key)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Client errors
	ErrCodeUnknownVibe  Code = "UNKNOWN_VIBE"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Gateway errors
	ErrCodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"

	// Best-effort stage failures (logged, never surfaced)
	ErrCodeTransformFailure Code = "TRANSFORM_FAILURE"
	ErrCodeCacheWrite       Code = "CACHE_WRITE_FAILURE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the HTTP API answers with.
// Errors without a code are treated as internal errors.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeUnknownVibe, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
