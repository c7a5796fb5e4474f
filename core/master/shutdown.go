package master

import (
	"context"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
	"github.com/dmitrymomot/peepsy/internal/perrors"
	"golang.org/x/sync/errgroup"
)

// ShutdownChild gracefully stops target: send SHUTDOWN, wait up to
// timeout for the worker to drain and disconnect on its own,
// then hard-kill. The exit handler will not restart it, since
// intentionalShutdown is set before SHUTDOWN is sent.
func (m *Master) ShutdownChild(ctx context.Context, target string, timeout time.Duration) error {
	m.mu.RLock()
	w, ok := m.workers[target]
	m.mu.RUnlock()
	if !ok {
		return perrors.NewNotFoundError("target", target)
	}
	return m.shutdownWorker(ctx, w, timeout)
}

func (m *Master) shutdownWorker(ctx context.Context, w *workerRecord, timeout time.Duration) error {
	w.intentionalShutdown.Store(true)
	w.stats.SetStatus(statusRestarting)

	sendCtx, cancel := context.WithTimeout(ctx, time.Second)
	err := w.channel.Send(sendCtx, envelope.NewShutdown())
	cancel()
	if err != nil {
		m.logger.Warn("master: failed to send SHUTDOWN, killing directly",
			logger.Target(w.target), logger.Error(err))
		_ = w.process.Kill()
	}

	select {
	case <-w.exited:
		return nil
	case <-time.After(timeout):
		_ = w.process.Kill()
		<-w.exited
		return nil
	}
}

// ShutdownAll gracefully stops every worker concurrently and marks the
// master as shutting down, rejecting any further Spawn calls. It is
// idempotent: a second call is a no-op.
func (m *Master) ShutdownAll(ctx context.Context, timeout time.Duration) error {
	if !m.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	m.rejectAllPending()

	m.mu.RLock()
	workers := make([]*workerRecord, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.mu.RUnlock()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		eg.Go(func() error {
			return m.shutdownWorker(egCtx, w, timeout)
		})
	}
	err := eg.Wait()

	m.cancel()
	m.wg.Wait()

	return err
}

// rejectAllPending fails every request still queued behind a group's
// concurrency cap; queued work is never carried across a shutdown.
func (m *Master) rejectAllPending() {
	m.mu.Lock()
	var rejected []*pendingRequest
	for _, g := range m.groups {
		rejected = append(rejected, g.pending...)
		g.pending = nil
	}
	m.mu.Unlock()

	for _, pr := range rejected {
		select {
		case pr.resultCh <- sendResult{err: perrors.ErrShuttingDown}:
		default:
		}
	}
}
