package master

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
	"github.com/dmitrymomot/peepsy/internal/perrors"
)

// Send resolves targetOrGroup (a direct target name or a configured
// group), dispatches action/data to it, and blocks for the matching
// RESPONSE. On failure it retries up to its retry count (0 by default),
// issuing a fresh correlation id and re-running load balancing on every
// attempt; not-found errors are never retried.
func (m *Master) Send(ctx context.Context, targetOrGroup, action string, data any, opts ...SendOption) (json.RawMessage, error) {
	cfg := sendConfig{timeout: m.opts.Timeout, retries: m.opts.MaxRetries}
	for _, opt := range opts {
		opt(&cfg)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.retries; attempt++ {
		result, err := m.sendOnce(ctx, targetOrGroup, action, payload, cfg.timeout)
		if err == nil {
			return result, nil
		}

		var notFound perrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}

		lastErr = err
		if attempt < cfg.retries {
			m.logger.Debug("master: send failed, retrying",
				logger.Action(action), logger.RetryCount(attempt+1), logger.Error(err))
			select {
			case <-time.After(m.opts.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (m *Master) sendOnce(ctx context.Context, targetOrGroup, action string, data json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	m.mu.RLock()
	g, isGroup := m.groups[targetOrGroup]
	w, isTarget := m.workers[targetOrGroup]
	m.mu.RUnlock()

	switch {
	case isGroup:
		return m.sendToGroup(ctx, g, action, data, timeout)
	case isTarget:
		return m.dispatchToTarget(ctx, w, action, data, timeout)
	default:
		return nil, perrors.NewNotFoundError("target or group", targetOrGroup)
	}
}

// sendToGroup enforces the group's concurrency cap: if the group-wide
// in-flight count has reached maxConcurrency, the request is queued and
// this call blocks until drainGroupPending dispatches it later.
func (m *Master) sendToGroup(ctx context.Context, g *group, action string, data json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	m.mu.Lock()
	if g.maxConcurrency > 0 && m.groupActiveLocked(g) >= g.maxConcurrency {
		resultCh := make(chan sendResult, 1)
		g.pending = append(g.pending, &pendingRequest{action: action, data: data, timeout: timeout, resultCh: resultCh})
		m.mu.Unlock()

		select {
		case res := <-resultCh:
			return res.data, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	target, err := g.selectTarget(m.activeForLocked)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	w, ok := m.workers[target]
	if !ok {
		m.mu.Unlock()
		return nil, perrors.NewNotFoundError("target", target)
	}

	// Reserve the slot before releasing the lock: the capacity check and
	// the requests_active increment must be one atomic step, or
	// concurrent sends could all pass the check and overshoot the cap.
	w.stats.BeginRequest()
	m.mu.Unlock()

	return m.dispatchReserved(ctx, w, action, data, timeout)
}

// groupActiveLocked sums requests_active across g's members. Callers
// must hold m.mu.
func (m *Master) groupActiveLocked(g *group) int {
	var total int
	for _, t := range g.targets {
		if w, ok := m.workers[t]; ok {
			total += int(w.stats.Active())
		}
	}
	return total
}

// activeForLocked adapts groupActiveLocked's per-target lookup to the
// signature group.selectTarget's least-busy strategy needs. Callers
// must hold m.mu.
func (m *Master) activeForLocked(target string) int32 {
	if w, ok := m.workers[target]; ok {
		return w.stats.Active()
	}
	return 0
}

// drainGroupPending dispatches as many queued requests as current
// capacity allows, re-running target selection for each so a slot freed
// by one member can serve a request originally queued behind another.
func (m *Master) drainGroupPending(g *group) {
	for {
		m.mu.Lock()
		if len(g.pending) == 0 {
			m.mu.Unlock()
			return
		}
		if g.maxConcurrency > 0 && m.groupActiveLocked(g) >= g.maxConcurrency {
			m.mu.Unlock()
			return
		}

		pr := g.pending[0]
		target, err := g.selectTarget(m.activeForLocked)
		if err != nil {
			g.pending = g.pending[1:]
			m.mu.Unlock()
			pr.resultCh <- sendResult{err: err}
			continue
		}

		w, ok := m.workers[target]
		if !ok {
			g.pending = g.pending[1:]
			m.mu.Unlock()
			pr.resultCh <- sendResult{err: perrors.NewNotFoundError("target", target)}
			continue
		}

		g.pending = g.pending[1:]
		w.stats.BeginRequest()
		m.mu.Unlock()

		go func(pr *pendingRequest, w *workerRecord) {
			data, err := m.dispatchReserved(context.Background(), w, pr.action, pr.data, pr.timeout)
			pr.resultCh <- sendResult{data: data, err: err}
		}(pr, w)
	}
}

// dispatchToTarget is the directly-addressed path: it reserves the
// target's requests_active slot under the same lock the group capacity
// check holds (direct traffic counts toward a group's in-flight sum),
// then completes the dispatch.
func (m *Master) dispatchToTarget(ctx context.Context, w *workerRecord, action string, data json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	m.mu.Lock()
	w.stats.BeginRequest()
	m.mu.Unlock()

	return m.dispatchReserved(ctx, w, action, data, timeout)
}

// dispatchReserved completes a dispatch whose requests_active slot was
// already reserved under the registry lock, routing through w's circuit
// breaker when one is configured. It releases the slot and drains the
// owning group's pending queue exactly once on every path, including a
// breaker that rejects without touching the channel.
func (m *Master) dispatchReserved(ctx context.Context, w *workerRecord, action string, data json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	start := time.Now()

	var raw json.RawMessage
	var err error
	if m.opts.Breaker == nil {
		raw, err = m.doDispatch(ctx, w, action, data, timeout)
	} else {
		var result any
		result, err = m.opts.Breaker.Execute(ctx, w.target, func(ctx context.Context) (any, error) {
			return m.doDispatch(ctx, w, action, data, timeout)
		})
		if err == nil {
			raw, _ = result.(json.RawMessage)
		}
	}

	w.stats.EndRequest(time.Since(start))
	if err != nil {
		w.stats.RecordError()
	}
	if g := m.groupOf(w.target); g != nil {
		m.drainGroupPending(g)
	}
	return raw, err
}

// doDispatch allocates an id, tracks it in the active table, sends the
// REQUEST, and resolves on RESPONSE, timeout, or context cancellation.
// Stats bookkeeping lives in dispatchReserved; this only owns the wire
// exchange and the active-table entry.
func (m *Master) doDispatch(ctx context.Context, w *workerRecord, action string, data json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = m.opts.Timeout
	}

	id := envelope.NewID()
	resultCh := make(chan dispatchResult, 1)

	m.activeMu.Lock()
	m.active[id] = &activeRequest{target: w.target, resultCh: resultCh}
	m.activeMu.Unlock()

	removeActive := func() {
		m.activeMu.Lock()
		delete(m.active, id)
		m.activeMu.Unlock()
	}

	req := envelope.NewRequest(id, action, data, timeout)
	if err := w.channel.Send(ctx, req); err != nil {
		removeActive()
		return nil, perrors.NewProcessError(w.target, "send request", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		removeActive()
		if res.err != nil {
			return nil, res.err
		}
		if res.env.IsError() {
			return nil, perrors.NewBaseError(res.env.ErrorMessage())
		}
		return res.env.Data, nil
	case <-timer.C:
		removeActive()
		return nil, perrors.NewTimeoutError(w.target, action, timeout)
	case <-ctx.Done():
		removeActive()
		return nil, ctx.Err()
	}
}
