package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit nil checks,
// following the principle of making zero values useful.

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ID creates a generic identifier attribute with a custom key.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// Action creates an attribute for action names.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Target creates an attribute for a worker target name.
func Target(target string) slog.Attr {
	return slog.String("target", target)
}

// GroupID creates an attribute for a load-balancing group id.
// Returns empty Attr for ungrouped targets.
func GroupID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("group", id)
}

// RequestsActive creates an attribute for a worker's in-flight request
// count.
func RequestsActive(n int32) slog.Attr {
	return slog.Int64("requests_active", int64(n))
}

// PID creates an attribute for an operating-system process ID.
func PID(pid int) slog.Attr {
	return slog.Int("pid", pid)
}
