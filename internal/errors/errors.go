// Package errors defines the coded application errors shared by services, repositories and handlers.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError; the HTTP layer maps each code to a status.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "not_found"
	ErrCodeConflict      ErrorCode = "conflict"
	ErrCodeValidation    ErrorCode = "validation"
	ErrCodeForeignKey    ErrorCode = "foreign_key"
	ErrCodeInternal      ErrorCode = "internal"
	ErrCodeTimeout       ErrorCode = "timeout"
	ErrCodeCanceled      ErrorCode = "canceled"
	ErrCodeQuotaExceeded ErrorCode = "quota_exceeded"
	ErrCodeInvalidState  ErrorCode = "invalid_state"
	ErrCodeUnauthorized  ErrorCode = "unauthorized"
	ErrCodeForbidden     ErrorCode = "forbidden"
)

// AppError carries a code, a client-safe message and an optional cause and field.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	switch {
	case e.Field != "" && e.Cause != nil:
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Field, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s (%s)", e.Message, e.Field)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	default:
		return e.Message
	}
}

func (e *AppError) Unwrap() error { return e.Cause }

// New returns an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func NotFound(message string) *AppError     { return New(ErrCodeNotFound, message) }
func Conflict(message string) *AppError     { return New(ErrCodeConflict, message) }
func Validation(message string) *AppError   { return New(ErrCodeValidation, message) }
func Unauthorized(message string) *AppError { return New(ErrCodeUnauthorized, message) }
func Forbidden(message string) *AppError    { return New(ErrCodeForbidden, message) }

// ValidationField reports invalid input for a named request field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// QuotaExceededf reports an owner at its active job cap.
func QuotaExceededf(format string, args ...any) *AppError {
	return Newf(ErrCodeQuotaExceeded, format, args...)
}

// InvalidStatef reports a resource not in the state an operation requires.
func InvalidStatef(format string, args ...any) *AppError {
	return Newf(ErrCodeInvalidState, format, args...)
}

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err's chain holds an AppError with code.
func Is(err error, code ErrorCode) bool {
	return code != "" && GetCode(err) == code
}

func IsNotFound(err error) bool     { return Is(err, ErrCodeNotFound) }
func IsValidation(err error) bool   { return Is(err, ErrCodeValidation) }
func IsForeignKey(err error) bool   { return Is(err, ErrCodeForeignKey) }
func IsUnauthorized(err error) bool { return Is(err, ErrCodeUnauthorized) }
func IsForbidden(err error) bool    { return Is(err, ErrCodeForbidden) }
