// Package perrors implements peepsy's error taxonomy. It lives under
// internal so both the public root package and the core/worker and
// core/master packages it wires into can depend on the taxonomy without
// the root package importing back down into core/* and creating a
// cycle; the root package re-exports these types as aliases.
package perrors

import (
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Error is the common shape of every error this module returns to a
// caller of Send: a machine-readable Code, a human-readable Message, and
// the Timestamp the error was constructed at. All four taxonomy types
// hold it in their Err field and forward Error() to it.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Name      string `json:"name"`

	// Stack is populated only by NewProcessError. It is not serialized;
	// the worker builds error_payload.stack for handler failures itself.
	Stack string `json:"-"`
}

func (e Error) Error() string {
	return e.Message
}

func newError(name, code, message string) Error {
	return Error{
		Name:      name,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
}

// BaseError is a generic failure that doesn't fit the other three
// taxonomy members.
type BaseError struct{ Err Error }

// NewBaseError builds a BaseError with the given message.
func NewBaseError(message string) BaseError {
	return BaseError{newError("PeepsyError", "PEEPSY_ERROR", message)}
}

// Error implements the error interface.
func (e BaseError) Error() string { return e.Err.Error() }

// TimeoutError is returned when a sent request's response was not
// received within its deadline. Enforcement is always sender-side; a
// worker's eventual RESPONSE for a timed-out request is discarded.
type TimeoutError struct{ Err Error }

// NewTimeoutError builds a TimeoutError for the given target/action.
func NewTimeoutError(target, action string, timeout time.Duration) TimeoutError {
	return TimeoutError{newError("PeepsyTimeoutError", "PEEPSY_TIMEOUT",
		fmt.Sprintf("request %q to %q timed out after %s", action, target, timeout))}
}

// Error implements the error interface.
func (e TimeoutError) Error() string { return e.Err.Error() }

// ProcessError wraps a spawn, send, or kill failure. A stack trace is
// captured at construction time via github.com/pkg/errors so operators
// can see where in the supervisor the failure originated, independent of
// whatever caused it.
type ProcessError struct{ Err Error }

// NewProcessError builds a ProcessError wrapping cause, capturing a stack
// trace at the call site.
func NewProcessError(target, message string, cause error) ProcessError {
	e := newError("PeepsyProcessError", "PEEPSY_PROCESS_ERROR",
		fmt.Sprintf("%s: %s: %v", target, message, cause))
	e.Stack = fmt.Sprintf("%+v", pkgerrors.WithStack(causeOrMessage(cause, message)))
	return ProcessError{e}
}

// Error implements the error interface.
func (e ProcessError) Error() string { return e.Err.Error() }

func causeOrMessage(cause error, message string) error {
	if cause != nil {
		return cause
	}
	return errors.New(message)
}

// NotFoundError is returned when a referenced target, group, or handler
// does not exist. It is never retried by Send.
type NotFoundError struct{ Err Error }

// NewNotFoundError builds a NotFoundError describing what kind of
// reference was missing (e.g. "target", "group", "handler") and its name.
func NewNotFoundError(kind, name string) NotFoundError {
	return NotFoundError{newError("PeepsyNotFoundError", "PEEPSY_NOT_FOUND",
		fmt.Sprintf("%s not found: %s", kind, name))}
}

// Error implements the error interface.
func (e NotFoundError) Error() string { return e.Err.Error() }

// Sentinel errors for conditions that are checked with errors.Is rather
// than unwrapped into one of the typed errors above.
var (
	// ErrShuttingDown is returned by Spawn when the master is shutting down.
	ErrShuttingDown = errors.New("peepsy: master is shutting down")

	// ErrAlreadyExists is returned by Spawn when target is already registered.
	ErrAlreadyExists = errors.New("peepsy: target already spawned")

	// ErrUnknownStrategy is returned lazily, at first dispatch to a group
	// configured with an unrecognized load-balancing strategy.
	ErrUnknownStrategy = errors.New("peepsy: unknown group strategy")

	// ErrInvalidTimeout is returned at construction when a configured
	// timeout is not a positive integer <= 300000ms.
	ErrInvalidTimeout = errors.New("peepsy: timeout must be > 0 and <= 300000ms")
)
