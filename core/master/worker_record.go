package master

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
	"github.com/dmitrymomot/peepsy/core/spawner"
	"github.com/dmitrymomot/peepsy/core/stats"
	"github.com/dmitrymomot/peepsy/core/transport"
	"github.com/dmitrymomot/peepsy/internal/perrors"
)

// Worker status labels reported through Stats and driven by the health
// monitor and restart controller.
const (
	statusStarting   = "starting"
	statusHealthy    = "healthy"
	statusUnhealthy  = "unhealthy"
	statusRestarting = "restarting"
	statusGone       = "gone"
)

// workerRecord is the master's bookkeeping for one spawned target: its
// original spawn configuration (kept so a restart can reproduce it
// exactly), its live process and channel handles, and its stats.
type workerRecord struct {
	target             string
	spec               spawner.Spec
	mode               envelope.Mode
	group              string
	disableAutoRestart bool

	process spawner.Process
	channel transport.Channel
	stats   *stats.Process

	// exited is closed once by onWorkerExit after it has finished handling
	// this process's exit (reaping it, rejecting in-flight requests, and
	// removing or restarting the target); shutdownWorker waits on it
	// instead of calling Process.Wait a second time.
	exited chan struct{}

	// intentionalShutdown is set before a graceful ShutdownChild/ShutdownAll
	// sends SHUTDOWN, so onWorkerExit knows not to treat the resulting exit
	// as a crash eligible for auto-restart.
	intentionalShutdown atomic.Bool

	// killing guards against the health monitor issuing a second SIGKILL
	// against a target it already killed and is waiting to restart.
	killing atomic.Bool

	// restartReason carries why the health monitor killed this worker, so
	// the eventual AutoRestart event reports an accurate cause; cleared
	// after every restart attempt.
	restartReason string

	restartAttempts int

	cancel context.CancelFunc
}

func newStats(status string) *stats.Process {
	s := &stats.Process{}
	s.SetStatus(status)
	return s
}

// readLoop demultiplexes one worker's channel until its context is
// cancelled or the channel closes (the worker process exited).
func (m *Master) readLoop(ctx context.Context, w *workerRecord) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-w.channel.Receive():
			if !ok {
				m.onWorkerExit(w)
				return
			}
			m.handleWorkerEnvelope(w, env)
		case err, ok := <-w.channel.Errs():
			if ok && err != nil {
				m.logger.Error("master: transport error",
					logger.Target(w.target), logger.Error(err))
			}
		}
	}
}

func (m *Master) handleWorkerEnvelope(w *workerRecord, env envelope.Envelope) {
	switch env.Type {
	case envelope.TypeInit:
		w.stats.SetStatus(statusHealthy)
	case envelope.TypeResponse:
		m.resolveActive(env)
	case envelope.TypeHeartbeat:
		w.stats.Heartbeat()
	case envelope.TypeRequest:
		go m.handleChildRequest(w, env)
	default:
		m.logger.Debug("master: ignoring envelope",
			logger.Target(w.target), slog.String("type", string(env.Type)))
	}
}

func (m *Master) resolveActive(env envelope.Envelope) {
	m.activeMu.Lock()
	ar, ok := m.active[env.ID]
	m.activeMu.Unlock()
	if !ok {
		return
	}
	select {
	case ar.resultCh <- dispatchResult{env: env}:
	default:
	}
}

// onWorkerExit runs once per process lifetime, when readLoop observes
// the channel close. It reaps the process, rejects any requests still
// in flight to it, and either finalizes removal (shutdown in progress,
// or auto-restart disabled) or hands off to the restart controller.
func (m *Master) onWorkerExit(w *workerRecord) {
	_ = w.process.Wait()
	defer close(w.exited)

	m.rejectActiveForTarget(w.target)

	if m.shuttingDown.Load() || w.intentionalShutdown.Load() {
		w.stats.SetStatus(statusGone)
		m.removeWorker(w.target)
		return
	}

	g := m.groupOf(w.target)
	disabled := w.disableAutoRestart || (g != nil && g.disableAutoRestart)
	if disabled {
		m.logger.Warn("master: worker exited, auto-restart disabled",
			logger.Target(w.target))
		w.stats.SetStatus(statusGone)
		m.removeWorker(w.target)
		return
	}

	reason := w.restartReason
	if reason == "" {
		reason = "process exited unexpectedly"
	}
	m.restart(w, reason)
}

func (m *Master) rejectActiveForTarget(target string) {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	for _, ar := range m.active {
		if ar.target != target {
			continue
		}
		err := perrors.NewProcessError(target, "worker process exited before responding", nil)
		select {
		case ar.resultCh <- dispatchResult{err: err}:
		default:
		}
	}
}
