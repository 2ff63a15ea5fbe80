// Package apperr defines the engine's stable error taxonomy (§7).
package apperr

import "fmt"

// Code is a stable, user-facing error classification string.
type Code string

const (
	InvalidAlphabet   Code = "InvalidAlphabet"
	InvalidLength     Code = "InvalidLength"
	IndexNotReady     Code = "IndexNotReady"
	IndexCorrupt      Code = "IndexCorrupt"
	TranscriptMissing Code = "TranscriptMissing"
	LengthMismatch    Code = "LengthMismatch"
	Cancelled         Code = "Cancelled"
	ResourceExhausted Code = "ResourceExhausted"
)

// Retriable reports whether a caller may reasonably retry an operation
// that failed with this code.
func (c Code) Retriable() bool {
	return c == IndexNotReady
}

// Error wraps a Code with a formatted message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with a formatted message.
func New(code Code, format string, a ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// Wrap attaches a Code and message to an underlying cause.
func Wrap(code Code, cause error, format string, a ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...), Cause: cause}
}

// Is reports whether err is an *Error with the given Code.
func Is(err error, code Code) bool {
	ae, ok := err.(*Error)
	return ok && ae.Code == code
}
