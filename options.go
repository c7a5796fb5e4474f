package peepsy

import (
	"time"

	"github.com/dmitrymomot/peepsy/core/config"
)

// MasterOptionsFromEnv loads config.MasterEnv and translates it into the
// functional Options a Master constructor call applies, so a process
// that sets PEEPSY_TIMEOUT_MS / PEEPSY_MAX_RETRIES / PEEPSY_RETRY_DELAY_MS
// / PEEPSY_HEARTBEAT_INTERVAL_MS / PEEPSY_HEARTBEAT_MISS_THRESHOLD gets a
// Master that behaves accordingly without every call site re-deriving
// the mapping by hand. Explicit Option values passed alongside these
// still win, since With* options are applied in the order given to New.
func MasterOptionsFromEnv() ([]Option, error) {
	env, err := config.Load[config.MasterEnv]()
	if err != nil {
		return nil, err
	}

	return []Option{
		WithTimeout(time.Duration(env.TimeoutMs) * time.Millisecond),
		WithMaxRetries(env.MaxRetries),
		WithRetryDelay(time.Duration(env.RetryDelayMs) * time.Millisecond),
		WithHeartbeatIntervalMs(env.HeartbeatIntervalMs),
		WithHeartbeatMissThreshold(env.HeartbeatMissThreshold),
	}, nil
}

// WorkerMaxConcurrencyFromEnv resolves the bounded-concurrent cap a
// Worker should run with: PEEPSY_MAX_CONCURRENCY if set to a positive
// value, otherwise fallback (typically a CLI flag or zero for
// unbounded).
func WorkerMaxConcurrencyFromEnv(fallback int) (int, error) {
	env, err := config.Load[config.WorkerEnv]()
	if err != nil {
		return 0, err
	}
	if env.MaxConcurrency > 0 {
		return env.MaxConcurrency, nil
	}
	return fallback, nil
}
