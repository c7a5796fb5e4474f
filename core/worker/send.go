package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/internal/perrors"
)

// Send issues a worker-originated REQUEST to the master and awaits the
// matching RESPONSE, symmetric to the master's own send but with no
// load balancing: there is exactly one peer, the master.
func (r *Runtime) Send(ctx context.Context, action string, data any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = r.opts.SendTimeout
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	id := envelope.NewID()
	wait := make(chan envelope.Envelope, 1)

	r.pendingMu.Lock()
	r.pending[id] = wait
	r.pendingMu.Unlock()

	defer func() {
		r.pendingMu.Lock()
		delete(r.pending, id)
		r.pendingMu.Unlock()
	}()

	req := envelope.NewRequest(id, action, payload, timeout)
	if err := r.channel.Send(ctx, req); err != nil {
		return nil, perrors.NewProcessError("master", "send request", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-wait:
		if resp.IsError() {
			return nil, perrors.NewBaseError(resp.ErrorMessage())
		}
		return resp.Data, nil
	case <-timer.C:
		return nil, perrors.NewTimeoutError("master", action, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runtime) onResponse(env envelope.Envelope) {
	r.pendingMu.Lock()
	ch, ok := r.pending[env.ID]
	r.pendingMu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- env:
	default:
	}
}
