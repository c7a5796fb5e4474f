package master

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/peepsy/core/breaker"
	"github.com/dmitrymomot/peepsy/core/spawner"
)

// MaxTimeout bounds a configurable request timeout; New rejects anything
// above it (or non-positive) with perrors.ErrInvalidTimeout.
const MaxTimeout = 300 * time.Second

// Default option values, mirroring the environment-variable defaults in
// core/config.MasterEnv so a Master constructed with no options behaves
// identically to one loaded from the environment.
const (
	DefaultTimeout                = 5 * time.Second
	DefaultMaxRetries             = 0
	DefaultRetryDelay             = 1 * time.Second
	DefaultHeartbeatIntervalMs    = 2000
	DefaultHeartbeatMissThreshold = 3
	DefaultShutdownTimeout        = 10 * time.Second
)

// Options configures a Master.
type Options struct {
	Timeout                time.Duration
	MaxRetries             int
	RetryDelay             time.Duration
	HeartbeatIntervalMs    int
	HeartbeatMissThreshold int
	ShutdownTimeout        time.Duration
	Logger                 *slog.Logger
	Spawner                spawner.Spawner
	Breaker                *breaker.Registry
}

// Option configures a Master at construction time.
type Option func(*Options)

// WithTimeout sets the default per-request timeout used when Send is
// called without an explicit one.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithMaxRetries sets the default number of retries Send attempts after
// its first failing attempt.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithRetryDelay sets the pause between retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithHeartbeatIntervalMs sets the cadence, in milliseconds, at which
// the health monitor re-evaluates every worker's liveness.
func WithHeartbeatIntervalMs(ms int) Option {
	return func(o *Options) { o.HeartbeatIntervalMs = ms }
}

// WithHeartbeatMissThreshold sets how many missed heartbeat intervals
// mark a worker unhealthy.
func WithHeartbeatMissThreshold(n int) Option {
	return func(o *Options) { o.HeartbeatMissThreshold = n }
}

// WithShutdownTimeout sets the default per-worker grace period ShutdownAll
// waits before issuing a hard kill.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) { o.ShutdownTimeout = d }
}

// WithLogger sets the structured logger used for dispatcher, health
// monitor, and restart controller diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithSpawner overrides the default spawner.OSSpawner, primarily for
// tests that substitute a fake process.
func WithSpawner(s spawner.Spawner) Option {
	return func(o *Options) { o.Spawner = s }
}

// WithBreaker installs a circuit breaker registry wrapping every Send
// dispatch by target, so a run of failures against one target fails
// fast instead of continuing to queue work at it.
func WithBreaker(r *breaker.Registry) Option {
	return func(o *Options) { o.Breaker = r }
}

func defaultOptions() Options {
	return Options{
		Timeout:                DefaultTimeout,
		MaxRetries:             DefaultMaxRetries,
		RetryDelay:             DefaultRetryDelay,
		HeartbeatIntervalMs:    DefaultHeartbeatIntervalMs,
		HeartbeatMissThreshold: DefaultHeartbeatMissThreshold,
		ShutdownTimeout:        DefaultShutdownTimeout,
		Logger:                 slog.New(slog.DiscardHandler),
		Spawner:                spawner.NewOSSpawner(),
	}
}

// SpawnOption configures one Spawn call.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	group              string
	disableAutoRestart bool
}

// WithGroup assigns the spawned worker to group, creating it with the
// default round-robin strategy if it does not already exist.
func WithGroup(group string) SpawnOption {
	return func(c *spawnConfig) { c.group = group }
}

// WithDisableAutoRestart exempts this one target from auto-restart even
// if its group allows it.
func WithDisableAutoRestart() SpawnOption {
	return func(c *spawnConfig) { c.disableAutoRestart = true }
}

// SendOption configures one Send call, overriding the Master's defaults.
type SendOption func(*sendConfig)

type sendConfig struct {
	timeout time.Duration
	retries int
}

// WithSendTimeout overrides the default request timeout for one Send call.
func WithSendTimeout(d time.Duration) SendOption {
	return func(c *sendConfig) { c.timeout = d }
}

// WithSendRetries overrides the default retry count for one Send call.
func WithSendRetries(n int) SendOption {
	return func(c *sendConfig) { c.retries = n }
}
