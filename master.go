package peepsy

import (
	"context"

	coremaster "github.com/dmitrymomot/peepsy/core/master"
)

// Master dispatches requests to a pool of spawned worker processes,
// directly by target or load-balanced across a named group, and
// supervises their health and restart. See core/master for the
// implementation; this is a thin, stable alias so callers never need to
// import that package directly.
type Master = coremaster.Master

// Options configures a Master at construction time. See core/master.Options.
type Options = coremaster.Options

// Option configures a Master at construction time.
type Option = coremaster.Option

// GroupConfig is the configuration ConfigureGroup applies to a group.
type GroupConfig = coremaster.GroupConfig

// GroupSnapshot reports a group's aggregate health and queue depth.
type GroupSnapshot = coremaster.GroupSnapshot

// SpawnOption configures one Spawn call.
type SpawnOption = coremaster.SpawnOption

// SendOption configures one Send call, overriding the Master's defaults.
type SendOption = coremaster.SendOption

// Group load-balancing strategies.
const (
	StrategyRoundRobin = coremaster.StrategyRoundRobin
	StrategyRandom     = coremaster.StrategyRandom
	StrategyLeastBusy  = coremaster.StrategyLeastBusy
)

// Master default values, mirroring core/config.MasterEnv.
const (
	MaxTimeout                    = coremaster.MaxTimeout
	DefaultTimeout                = coremaster.DefaultTimeout
	DefaultMaxRetries             = coremaster.DefaultMaxRetries
	DefaultRetryDelay             = coremaster.DefaultRetryDelay
	DefaultHeartbeatIntervalMs    = coremaster.DefaultHeartbeatIntervalMs
	DefaultHeartbeatMissThreshold = coremaster.DefaultHeartbeatMissThreshold
	DefaultShutdownTimeout        = coremaster.DefaultShutdownTimeout
)

// New constructs a Master with opts applied over its defaults. A
// configured timeout outside (0, MaxTimeout] is rejected with
// ErrInvalidTimeout.
var New = coremaster.New

// Master construction and dispatch options, re-exported so callers only
// ever import this package.
var (
	WithTimeout                = coremaster.WithTimeout
	WithMaxRetries             = coremaster.WithMaxRetries
	WithRetryDelay             = coremaster.WithRetryDelay
	WithHeartbeatIntervalMs    = coremaster.WithHeartbeatIntervalMs
	WithHeartbeatMissThreshold = coremaster.WithHeartbeatMissThreshold
	WithShutdownTimeout        = coremaster.WithShutdownTimeout
	WithLogger                 = coremaster.WithLogger
	WithSpawner                = coremaster.WithSpawner
	WithBreaker                = coremaster.WithBreaker
	WithGroup                  = coremaster.WithGroup
	WithDisableAutoRestart     = coremaster.WithDisableAutoRestart
	WithSendTimeout            = coremaster.WithSendTimeout
	WithSendRetries            = coremaster.WithSendRetries
)

// RegisterHandler registers a master-side handler for action, answering
// REQUEST envelopes a worker originates toward the master. Generic type
// parameters can't cross a plain var alias, so this thin wrapper is the
// one facade function that isn't just a re-exported value.
func RegisterHandler[Req, Resp any](m *Master, action string, fn func(context.Context, Req) (Resp, error)) {
	coremaster.RegisterHandler(m, action, fn)
}
