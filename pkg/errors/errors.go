// Package errors provides structured error types for svg2avd.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - SESSION_*: Render session lifecycle failures
//   - CONVERSION_*: Outcomes reported by the embedded converter
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNoSession, "there is no conversion session open")
//	if errors.Is(err, errors.ErrCodeNoSession) {
//	    // Start a session first
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Session lifecycle errors
	ErrCodeNoSession     Code = "NO_SESSION"
	ErrCodeSessionStart  Code = "SESSION_START_FAILED"
	ErrCodeSessionState  Code = "INVALID_SESSION_STATE"
	ErrCodeSessionClosed Code = "SESSION_CLOSED"

	// I/O errors
	ErrCodeIO           Code = "IO_ERROR"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Conversion outcomes
	ErrCodeConversionFailed   Code = "CONVERSION_FAILED"
	ErrCodeConversionWarnings Code = "CONVERSION_WARNINGS"

	// Transport errors
	ErrCodeProtocol Code = "PROTOCOL_ERROR"
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// coder is implemented by error types that carry a Code.
type coder interface {
	ErrorCode() Code
}

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

// ErrorCode returns e.Code.
func (e *Error) ErrorCode() Code {
	return e.Code
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
// It checks the outermost coded error in the chain.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
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
	var w *WarningsError
	if errors.As(err, &w) {
		return w.Error()
	}
	return err.Error()
}

// WarningsError is returned when the converter produced output but also
// reported warnings (unsupported gradients, transforms, ...). Any warning
// fails the conversion.
type WarningsError struct {
	ID       string   // Correlation id of the conversion
	Warnings []string // Warnings as reported by the converter
}

// Error implements the error interface.
func (e *WarningsError) Error() string {
	if len(e.Warnings) == 0 {
		return "conversion produced warnings"
	}
	return "conversion produced warnings: " + strings.Join(e.Warnings, "; ")
}

// ErrorCode returns ErrCodeConversionWarnings.
func (e *WarningsError) ErrorCode() Code {
	return ErrCodeConversionWarnings
}
