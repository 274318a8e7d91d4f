// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99)
//   - Validation errors (100-199): invalid config, date ranges, signals
//   - Data errors (200-299): missing market data, query failures
//   - Strategy errors (400-499): strategy loading and runtime failures
//   - Trading errors (500-599): fill rejection and cost model errors
//   - Backtest errors (600-699): engine state errors
//
// Usage:
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "initial capital must be positive")
//	err := errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s", symbol)
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to read equity curve", cause)
//	if errors.HasCode(err, errors.ErrCodeInsufficientCapital) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode reports whether err or any error in its chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var structured *Error
	for errors.As(err, &structured) {
		if structured.Code == code {
			return true
		}

		err = structured.Cause
		if err == nil {
			return false
		}
	}

	return false
}

// GetCode returns the code of the first structured error in the chain,
// or ErrCodeUnknown if there is none.
func GetCode(err error) ErrorCode {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Code
	}

	return ErrCodeUnknown
}
