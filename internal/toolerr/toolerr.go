// Package toolerr provides structured error types for tool invocation and
// agent-loop failures. Error preserves message and causal context while still
// implementing the standard error interface, so callers can use errors.Is/As
// across retries and turn boundaries.
package toolerr

import (
	"errors"
	"fmt"
)

// Error represents a structured failure raised by a tool invocation or by the
// agent loop while handling one. Cause links to a wrapped Error, so
// errors.Is/As can walk the chain.
type Error struct {
	Message string
	Cause   *Error
}

// Sentinel error kinds from spec §7. Wrap one of these with fmt.Errorf("%w: ...")
// or compare with errors.Is against the value returned by a failing operation.
var (
	ErrUnknownTool         = errors.New("unknown tool")
	ErrToolExecution       = errors.New("tool execution failed")
	ErrTimeout             = errors.New("tool call timed out")
	ErrPolicyBlock         = errors.New("policy blocked the action")
	ErrCancellationRequest = errors.New("cancellation requested")
	ErrDeadlineExceeded    = errors.New("investigation deadline exceeded")
	ErrInvalidSession      = errors.New("invalid session")
	ErrDuplicateChannel    = errors.New("investigation already running for channel")
)

// New constructs an Error with the provided message.
func New(message string) *Error {
	if message == "" {
		message = "tool error"
	}
	return &Error{Message: message}
}

// NewWithCause constructs an Error that wraps an underlying error.
func NewWithCause(message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into an Error chain, flattening any
// existing Error to avoid double wrapping.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Errorf formats according to a format specifier and returns it as an Error.
func Errorf(format string, args ...any) *Error {
	return New(fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}
