// Package apperr defines the closed error taxonomy shared by all engine
// operations. Every public failure is an *Error carrying a Code, a
// human-readable message, and the underlying cause (when any) for
// diagnostics.
package apperr

import (
	"errors"
	"fmt"
)

// Code discriminates error variants. The set is closed per operation.
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeReadError       Code = "READ_ERROR"
	CodeParseError      Code = "PARSE_ERROR"
	CodeValidationError Code = "VALIDATION_ERROR"
	CodeWriteError      Code = "WRITE_ERROR"
	CodeRenameError     Code = "RENAME_ERROR"
	CodeBackupError     Code = "BACKUP_ERROR"
	CodeDeleteError     Code = "DELETE_ERROR"
	CodeFSError         Code = "FS_ERROR"
	CodeNotArchivable   Code = "NOT_ARCHIVABLE"
	CodeAlreadyArchived Code = "ALREADY_ARCHIVED"
	CodeInvalidCategory Code = "INVALID_CATEGORY"
	CodeNotParaPath     Code = "NOT_PARA_PATH"
)

// Error is the structured error returned by every engine operation.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// E creates an error with no cause.
func E(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new coded error. The cause is preserved
// verbatim so callers can still reach the original failure.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the Code from err, or empty string when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
