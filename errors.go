// Package peepsy implements a bidirectional, request/response IPC
// supervisor for a master process that spawns, monitors, and dispatches
// work to a pool of long-lived child worker processes.
//
// See core/master for the dispatcher and group scheduler, core/worker for
// the worker-side execution runtime, and core/envelope for the wire
// format that ties them together.
package peepsy

import "github.com/dmitrymomot/peepsy/internal/perrors"

// Error is the common shape of every error this module returns to a
// caller of Send: a machine-readable Code, a human-readable Message, and
// the Timestamp the error was constructed at. All four taxonomy types
// hold it in their Err field and forward Error() to it.
type Error = perrors.Error

// BaseError is a generic failure that doesn't fit the other three
// taxonomy members.
type BaseError = perrors.BaseError

// TimeoutError is returned when a sent request's response was not
// received within its deadline. Enforcement is always sender-side; a
// worker's eventual RESPONSE for a timed-out request is discarded.
type TimeoutError = perrors.TimeoutError

// ProcessError wraps a spawn, send, or kill failure, carrying a stack
// trace captured at construction time.
type ProcessError = perrors.ProcessError

// NotFoundError is returned when a referenced target, group, or handler
// does not exist. It is never retried by Send.
type NotFoundError = perrors.NotFoundError

// Constructors, re-exported from internal/perrors so callers never need
// to import that package directly.
var (
	NewBaseError     = perrors.NewBaseError
	NewTimeoutError  = perrors.NewTimeoutError
	NewProcessError  = perrors.NewProcessError
	NewNotFoundError = perrors.NewNotFoundError
)

// Sentinel errors for conditions checked with errors.Is rather than
// unwrapped into one of the typed errors above.
var (
	ErrShuttingDown    = perrors.ErrShuttingDown
	ErrAlreadyExists   = perrors.ErrAlreadyExists
	ErrUnknownStrategy = perrors.ErrUnknownStrategy
	ErrInvalidTimeout  = perrors.ErrInvalidTimeout
)
