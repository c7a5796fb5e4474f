// Package logger provides slog attribute helpers shared by the master
// and worker runtimes, covering the supervisor's own vocabulary:
// targets, groups, actions, correlation ids, durations, and counters.
//
// Helpers follow the empty Attr pattern: a nil error, a nil id value,
// or an empty group id yields a zero slog.Attr, which slog drops, so
// call sites never need nil checks:
//
//	m.logger.Debug("master: send failed, retrying",
//		logger.Action(action),
//		logger.RetryCount(attempt),
//		logger.Error(err))
//
// Keys are fixed per helper ("target", "action", "retry_count", ...)
// so log output stays greppable across the dispatcher, the health
// monitor, and the worker runtime without per-call-site key strings.
package logger
