// Package errors provides structured error types for tracegraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP server
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - TOOL_*, RENDER_*, COMPOSITE_*: External tool failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Tool Failures
//
// Failures of the external renderer and compositor are reported with typed
// errors that carry the coordinates that failed and the tool's captured
// output: [ToolUnavailableError], [RenderError] and [CompositeError].
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s", format)
//	if errors.Is(err, errors.ErrCodeInvalidFormat) {
//	    // Handle validation error
//	}
//
//	var re *errors.RenderError
//	if errors.As(err, &re) {
//	    fmt.Println(re.Position, re.Tick, re.Output)
//	}
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
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInvalidDelimiter Code = "INVALID_DELIMITER"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// External tool errors
	ErrCodeToolUnavailable Code = "TOOL_UNAVAILABLE"
	ErrCodeRenderFailed    Code = "RENDER_FAILED"
	ErrCodeCompositeFailed Code = "COMPOSITE_FAILED"
	ErrCodeEngineFailed    Code = "ENGINE_FAILED"
	ErrCodeTimeout         Code = "TIMEOUT"

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

// coder is implemented by typed errors that map onto a single code.
type coder interface {
	ErrorCode() Code
}

// codeOf returns the code carried directly by err, without unwrapping.
func codeOf(err error) (Code, bool) {
	switch e := err.(type) {
	case *Error:
		return e.Code, true
	case coder:
		return e.ErrorCode(), true
	}
	return "", false
}

// Is reports whether any error in err's chain carries the given code.
func Is(err error, code Code) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if c, ok := codeOf(e); ok && c == code {
			return true
		}
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if c, ok := codeOf(e); ok {
			return c
		}
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

// =============================================================================
// Tool Errors
// =============================================================================

// ToolUnavailableError reports that a required external program is not
// installed or not executable. It is raised before any work starts.
type ToolUnavailableError struct {
	Tool   string // Logical tool name (e.g. "renderer")
	Binary string // Binary that was looked up (e.g. "dot")
	Hint   string // Installation hint, may be empty
	Cause  error
}

// Error implements the error interface.
func (e *ToolUnavailableError) Error() string {
	msg := fmt.Sprintf("%s unavailable: %q not found", e.Tool, e.Binary)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Unwrap returns the lookup error.
func (e *ToolUnavailableError) Unwrap() error { return e.Cause }

// ErrorCode returns ErrCodeToolUnavailable.
func (e *ToolUnavailableError) ErrorCode() Code { return ErrCodeToolUnavailable }

// RenderError reports a renderer run that exited with a failure for one tick.
type RenderError struct {
	Position int
	Tick     int
	Output   string // Captured diagnostic output of the renderer
	Cause    error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render position %d tick %d: %v%s", e.Position, e.Tick, e.Cause, formatOutput(e.Output))
}

// Unwrap returns the underlying process error.
func (e *RenderError) Unwrap() error { return e.Cause }

// ErrorCode returns ErrCodeRenderFailed.
func (e *RenderError) ErrorCode() Code { return ErrCodeRenderFailed }

// CompositeError reports a compositor run that failed for one position.
type CompositeError struct {
	Position int
	Output   string // Captured diagnostic output of the compositor
	Cause    error
}

// Error implements the error interface.
func (e *CompositeError) Error() string {
	return fmt.Sprintf("composite position %d: %v%s", e.Position, e.Cause, formatOutput(e.Output))
}

// Unwrap returns the underlying process error.
func (e *CompositeError) Unwrap() error { return e.Cause }

// ErrorCode returns ErrCodeCompositeFailed.
func (e *CompositeError) ErrorCode() Code { return ErrCodeCompositeFailed }

func formatOutput(out string) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	return "\n" + out
}
