package master

import (
	"context"
	"time"

	"github.com/dmitrymomot/peepsy/core/events"
	"github.com/dmitrymomot/peepsy/core/logger"
)

// healthMonitorLoop re-evaluates every worker's liveness every
// heartbeat_interval_ms, the same cadence heartbeats are emitted at.
func (m *Master) healthMonitorLoop(ctx context.Context) {
	interval := time.Duration(m.opts.HeartbeatIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Duration(DefaultHeartbeatIntervalMs) * time.Millisecond
	}
	threshold := interval * time.Duration(m.opts.HeartbeatMissThreshold)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkHealth(threshold)
		}
	}
}

// checkHealth computes now - max(last_heartbeat_at, last_activity) for
// every worker and flips its status between healthy and unhealthy,
// emitting heartbeat-missed and triggering a kill the first time a
// worker crosses the threshold.
func (m *Master) checkHealth(threshold time.Duration) {
	m.mu.RLock()
	workers := make([]*workerRecord, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, w := range workers {
		snap := w.stats.Snapshot()
		switch snap.Status {
		case statusStarting, statusRestarting, statusGone:
			continue
		}

		last := snap.LastHeartbeatAt
		if snap.LastActivity.After(last) {
			last = snap.LastActivity
		}
		if last.IsZero() {
			continue
		}

		silence := now.Sub(last)
		if silence <= threshold {
			if snap.Status != statusHealthy {
				w.stats.SetStatus(statusHealthy)
			}
			continue
		}

		if snap.Status != statusUnhealthy {
			w.stats.SetStatus(statusUnhealthy)
			m.logger.Warn("master: heartbeat missed",
				logger.Target(w.target), logger.Duration(silence),
				logger.RequestsActive(snap.RequestsActive))
			m.events.Emit(events.HeartbeatMissed, w.target, events.HeartbeatMissedPayload{
				LastHeartbeatAt: last,
				MissedFor:       silence,
			})
		}

		// A worker exempted from auto-restart is only flagged unhealthy;
		// killing it would remove it with nothing to bring it back.
		g := m.groupOf(w.target)
		if w.disableAutoRestart || (g != nil && g.disableAutoRestart) {
			continue
		}
		m.killForRestart(w, "heartbeat missed")
	}
}

// killForRestart forcibly terminates w's process so onWorkerExit's exit
// handler can restart it; it is a no-op if a kill is already pending for
// this worker.
func (m *Master) killForRestart(w *workerRecord, reason string) {
	if !w.killing.CompareAndSwap(false, true) {
		return
	}
	w.restartReason = reason
	if err := w.process.Kill(); err != nil {
		m.logger.Debug("master: kill for restart failed",
			logger.Target(w.target), logger.Error(err))
	}
}

// restart re-spawns w's process with its original spawn configuration,
// preserving target but issuing a new pid. The exited record is replaced
// wholesale under the lock rather than mutated in place, so concurrent
// readers of the old record never observe a half-swapped channel or
// stats pointer. A failed re-spawn is logged and the target is removed;
// it stays removed until the next explicit Spawn.
func (m *Master) restart(w *workerRecord, reason string) {
	oldPID := w.process.PID()
	w.stats.SetStatus(statusRestarting)

	process, err := m.opts.Spawner.Spawn(m.ctx, w.spec)
	if err != nil {
		m.logger.Error("master: restart failed",
			logger.Target(w.target), logger.Error(err))
		m.events.Emit(events.Error, w.target, events.ErrorPayload{Err: err})
		m.removeWorker(w.target)
		return
	}

	replacement := &workerRecord{
		target:             w.target,
		spec:               w.spec,
		mode:               w.mode,
		group:              w.group,
		disableAutoRestart: w.disableAutoRestart,
		process:            process,
		channel:            m.wireChannel(process),
		stats:              newStats(statusStarting),
		exited:             make(chan struct{}),
		restartAttempts:    w.restartAttempts + 1,
	}

	m.mu.Lock()
	m.workers[w.target] = replacement
	m.mu.Unlock()

	m.startReadLoop(replacement)

	m.events.Emit(events.AutoRestart, w.target, events.AutoRestartPayload{
		OldPID:  oldPID,
		NewPID:  process.PID(),
		Attempt: replacement.restartAttempts,
		Reason:  reason,
	})
}
