// Package master implements the supervisor side of the channel: target
// and group bookkeeping, the routing/retry algorithm, the group
// scheduler and its pending-request queue, the health monitor, and the
// restart controller.
package master

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/events"
	"github.com/dmitrymomot/peepsy/core/logger"
	"github.com/dmitrymomot/peepsy/core/registry"
	"github.com/dmitrymomot/peepsy/core/spawner"
	"github.com/dmitrymomot/peepsy/core/stats"
	"github.com/dmitrymomot/peepsy/core/transport"
	"github.com/dmitrymomot/peepsy/core/transport/stdio"
	"github.com/dmitrymomot/peepsy/internal/perrors"
)

// Master supervises a pool of long-lived worker processes: it spawns
// them, dispatches REQUESTs to them directly or through a load-balanced
// group, tracks their health from heartbeats, and restarts them when
// they go quiet, preserving each target's original spawn configuration.
type Master struct {
	opts     Options
	logger   *slog.Logger
	handlers *registry.Registry
	events   *events.Emitter

	mu      sync.RWMutex
	workers map[string]*workerRecord
	groups  map[string]*group

	activeMu sync.Mutex
	active   map[string]*activeRequest

	shuttingDown atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// activeRequest is the master's bookkeeping for one in-flight REQUEST:
// enough to route its RESPONSE back to the awaiting Send call, or to
// reject it if its target exits first.
type activeRequest struct {
	target   string
	resultCh chan dispatchResult
}

// dispatchResult is what the read loop delivers to an awaiting Send:
// either the RESPONSE envelope, or a typed error when the target exited
// before responding.
type dispatchResult struct {
	env envelope.Envelope
	err error
}

// New constructs a Master. It does not spawn anything or start the
// health monitor; call Spawn to add workers and Run to start the
// health-monitor loop and block until the context is cancelled. A
// Timeout outside (0, 300s] is rejected here rather than surfacing as a
// confusing per-request failure later.
func New(opts ...Option) (*Master, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.Timeout <= 0 || o.Timeout > MaxTimeout {
		return nil, perrors.ErrInvalidTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Master{
		opts:     o,
		logger:   o.Logger,
		handlers: registry.New(),
		events:   events.New(events.WithLogger(o.Logger)),
		workers:  make(map[string]*workerRecord),
		groups:   make(map[string]*group),
		active:   make(map[string]*activeRequest),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Events returns the observer registry listeners subscribe to for
// spawn, error, heartbeat-missed, and auto-restart notifications.
func (m *Master) Events() *events.Emitter {
	return m.events
}

// RegisterHandler registers a master-side handler for action, invoked
// when a worker originates a REQUEST the master must answer. Req is
// JSON-decoded from the incoming payload; Resp is JSON-encoded into the
// RESPONSE sent back.
func RegisterHandler[Req, Resp any](m *Master, action string, fn func(context.Context, Req) (Resp, error)) {
	registry.Register(m.handlers, action, fn)
}

// UnregisterHandler removes the master-side handler for action, if any.
func (m *Master) UnregisterHandler(action string) {
	m.handlers.Unregister(action)
}

// ConfigureGroup creates or updates group's configuration. Existing
// members are not moved. An unrecognized Strategy is accepted here and
// only rejected lazily, at the group's first dispatch.
func (m *Master) ConfigureGroup(groupID string, cfg GroupConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[groupID]
	if !ok {
		g = &group{id: groupID, strategy: StrategyRoundRobin}
		m.groups[groupID] = g
	}
	if cfg.Strategy != "" {
		g.strategy = cfg.Strategy
	}
	if cfg.MaxConcurrency > 0 {
		g.maxConcurrency = cfg.MaxConcurrency
	}
	g.disableAutoRestart = cfg.DisableAutoRestart

	m.logger.Debug("master: configured group",
		logger.GroupID(groupID), slog.String("strategy", g.strategy))
}

// GroupConfig is the configuration ConfigureGroup applies to a group.
type GroupConfig struct {
	Strategy           string
	MaxConcurrency     int
	DisableAutoRestart bool
}

// Spawn starts a new worker process for target, registers it (and, if
// group is set via WithGroup, adds it to that group, creating it with
// the default round-robin strategy if needed), and begins reading its
// envelopes. It fails if the master is shutting down or target already
// exists.
func (m *Master) Spawn(ctx context.Context, target string, spec spawner.Spec, mode envelope.Mode, opts ...SpawnOption) error {
	if m.shuttingDown.Load() {
		return perrors.ErrShuttingDown
	}

	var cfg spawnConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	if _, exists := m.workers[target]; exists {
		m.mu.Unlock()
		return perrors.ErrAlreadyExists
	}
	m.mu.Unlock()

	// The spawned process's lifetime is bound to the master's own context,
	// not the caller's: cancelling the ctx that happened to be in scope at
	// Spawn time must not take a long-lived worker down with it.
	process, err := m.opts.Spawner.Spawn(m.ctx, spec)
	if err != nil {
		return perrors.NewProcessError(target, "spawn", err)
	}

	w := &workerRecord{
		target:             target,
		spec:               spec,
		mode:               mode,
		group:              cfg.group,
		disableAutoRestart: cfg.disableAutoRestart,
		process:            process,
		channel:            m.wireChannel(process),
		stats:              newStats(statusStarting),
		exited:             make(chan struct{}),
	}

	m.mu.Lock()
	m.workers[target] = w
	if cfg.group != "" {
		g, ok := m.groups[cfg.group]
		if !ok {
			g = &group{id: cfg.group, strategy: StrategyRoundRobin}
			m.groups[cfg.group] = g
		}
		g.targets = append(g.targets, target)
	}
	m.mu.Unlock()

	m.startReadLoop(w)

	m.logger.Debug("master: spawned worker",
		logger.Target(target), logger.PID(process.PID()), logger.GroupID(cfg.group))
	m.events.Emit(events.Spawn, target, events.SpawnPayload{PID: process.PID()})
	return nil
}

func (m *Master) wireChannel(process spawner.Process) transport.Channel {
	var closer io.Closer
	if c, ok := process.Stdin().(io.Closer); ok {
		closer = c
	}
	return stdio.New(process.Stdin(), process.Stdout(), closer, stdio.WithLogger(m.logger))
}

func (m *Master) startReadLoop(w *workerRecord) {
	readCtx, cancel := context.WithCancel(m.ctx)
	w.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.readLoop(readCtx, w)
	}()
}

// Run starts the health monitor and blocks until ctx (or the Master's
// own lifetime context, cancelled by ShutdownAll) is done, then performs
// a graceful ShutdownAll of every remaining worker.
func (m *Master) Run(ctx context.Context) error {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.healthMonitorLoop(m.ctx)
	}()

	select {
	case <-ctx.Done():
	case <-m.ctx.Done():
	}

	return m.ShutdownAll(context.Background(), m.opts.ShutdownTimeout)
}

// Stats returns the observability snapshot for target.
func (m *Master) Stats(target string) (stats.Snapshot, error) {
	m.mu.RLock()
	w, ok := m.workers[target]
	m.mu.RUnlock()
	if !ok {
		return stats.Snapshot{}, perrors.NewNotFoundError("target", target)
	}
	return w.stats.Snapshot(), nil
}

// GroupSnapshot is the observability view of one group.
type GroupSnapshot struct {
	ID             string
	Strategy       string
	MaxConcurrency int
	Targets        []string
	PendingCount   int
	ActiveTotal    int32
}

// GroupStats returns the observability snapshot for groupID.
func (m *Master) GroupStats(groupID string) (GroupSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[groupID]
	if !ok {
		return GroupSnapshot{}, perrors.NewNotFoundError("group", groupID)
	}

	var total int32
	for _, t := range g.targets {
		if w, ok := m.workers[t]; ok {
			total += w.stats.Active()
		}
	}

	return GroupSnapshot{
		ID:             g.id,
		Strategy:       g.strategy,
		MaxConcurrency: g.maxConcurrency,
		Targets:        append([]string(nil), g.targets...),
		PendingCount:   len(g.pending),
		ActiveTotal:    total,
	}, nil
}

// UnhealthyTargets returns the targets currently marked unhealthy, sorted
// by name.
func (m *Master) UnhealthyTargets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for target, w := range m.workers {
		if w.stats.Snapshot().Status == statusUnhealthy {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

// Targets returns every currently registered target, sorted by name.
// Intended for observability surfaces (the CLI's status dashboard) that
// need to enumerate workers rather than query one by name.
func (m *Master) Targets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.workers))
	for target := range m.workers {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// GroupIDs returns every currently configured group id, sorted by name.
func (m *Master) GroupIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.groups))
	for id := range m.groups {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ActiveCount returns the sum of requests_active across every worker.
func (m *Master) ActiveCount() int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int32
	for _, w := range m.workers {
		total += w.stats.Active()
	}
	return total
}

// Alive reports whether target is registered and not in the "gone" state.
func (m *Master) Alive(target string) bool {
	m.mu.RLock()
	w, ok := m.workers[target]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return w.stats.Snapshot().Status != statusGone
}

func (m *Master) removeWorker(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[target]
	if !ok {
		return
	}
	delete(m.workers, target)

	if w.group != "" {
		if g, ok := m.groups[w.group]; ok {
			g.removeTarget(target)
			if len(g.targets) == 0 {
				delete(m.groups, w.group)
			}
		}
	}
}

func (m *Master) groupOf(target string) *group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[target]
	if !ok || w.group == "" {
		return nil
	}
	return m.groups[w.group]
}
