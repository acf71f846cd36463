// Package errors provides structured error types for nuspect.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and library packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_* / BLANK_* / UNKNOWN_*: Input and configuration validation failures
//   - SOURCE_* / ALL_SOURCES_*: Multi-source resolution failures
//   - NOT_FOUND / NETWORK_* / TIMEOUT: Transport-level failures
//   - MALFORMED_* / PARTIAL_*: Archive and metadata extraction failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeBlankCredential, "source %q: api key is blank", name)
//	if errors.Is(err, errors.ErrCodeBlankCredential) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSourceUnavailable, origErr, "source %q failed", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors. All of these are fatal to the single call and
	// never retried.
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeUnknownSource    Code = "UNKNOWN_SOURCE"
	ErrCodeNoEnabledSources Code = "NO_ENABLED_SOURCES"
	ErrCodeBlankCredential  Code = "BLANK_CREDENTIAL"
	ErrCodeInvalidPackage   Code = "INVALID_PACKAGE"

	// Multi-source resolution errors
	ErrCodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	ErrCodeAllSourcesFailed  Code = "ALL_SOURCES_FAILED"

	// Transport errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"

	// Extraction errors
	ErrCodeMalformedArchive Code = "MALFORMED_ARCHIVE"
	ErrCodePartialMetadata  Code = "PARTIAL_METADATA"

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

// IsConfiguration reports whether err belongs to the configuration error
// family (invalid config, unknown source, no enabled sources, blank
// credential). Configuration errors are never retried.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidConfig, ErrCodeUnknownSource, ErrCodeNoEnabledSources,
		ErrCodeBlankCredential, ErrCodeInvalidPackage:
		return true
	}
	return false
}

// IsTransport reports whether err is a plain transport-level failure
// (network error, timeout, or resource not found). The multi-source failure
// aggregation policy re-raises the first transport error verbatim when every
// captured failure is transport-level.
func IsTransport(err error) bool {
	switch GetCode(err) {
	case ErrCodeNetwork, ErrCodeTimeout, ErrCodeNotFound:
		return true
	}
	return false
}
