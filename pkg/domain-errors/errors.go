// Package derrors defines the error taxonomy shared by all modules.
//
// Every failure surfaced from a service carries exactly one Code; handlers
// map codes to HTTP statuses in one place (pkg/platform/httputil). A policy
// denial is not an error — IsAllowed returns false for that — so there is no
// "denied" code on the decision path itself; CodeDenied exists for callers
// such as the ledger that must abort an operation on a denied decision.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and the HTTP layer.
type Code string

const (
	// CodeInvalidInput marks malformed or out-of-bound arguments. Always
	// raised before any state mutation.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks operations that require prior state that does
	// not exist.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized marks administrative calls from a caller that is
	// not the controlling authority.
	CodeUnauthorized Code = "unauthorized"

	// CodeDenied marks an operation aborted because the compliance
	// decision came back false.
	CodeDenied Code = "denied"

	// CodeInternal marks store or downstream failures.
	CodeInternal Code = "internal_error"
)

// Error pairs a Code with a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with the given code and formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause for
// errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// errors raised outside this taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message extracts the human-readable message without the code prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
