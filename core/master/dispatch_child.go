package master

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
	"github.com/dmitrymomot/peepsy/core/registry"
)

// handleChildRequest answers a worker-originated REQUEST against the
// master's own handler registry, symmetric to core/worker's handler
// execution but without load balancing: the worker always addresses
// exactly one peer, the master.
func (m *Master) handleChildRequest(w *workerRecord, env envelope.Envelope) {
	handler, ok := m.handlers.Lookup(env.Action)
	if !ok {
		m.respondToWorker(w, childNotFoundResponse(env))
		return
	}

	ctx := context.Background()
	if env.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.Timeout())
		defer cancel()
	}

	data, err := safeCallChild(ctx, handler, env.Data)
	if err != nil {
		m.respondToWorker(w, childErrorResponse(env, err))
		return
	}
	m.respondToWorker(w, envelope.NewResponse(env.ID, 200, data))
}

func safeCallChild(ctx context.Context, handler registry.Handler, data json.RawMessage) (result json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return handler.Call(ctx, data)
}

func (m *Master) respondToWorker(w *workerRecord, resp envelope.Envelope) {
	sendCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.channel.Send(sendCtx, resp); err != nil {
		m.logger.Error("master: failed to send response to worker",
			logger.Target(w.target), logger.Error(err))
	}
}

func childNotFoundResponse(req envelope.Envelope) envelope.Envelope {
	msg := fmt.Sprintf("No handler registered for action: %s", req.Action)
	return envelope.NewErrorResponse(req.ID, 404, msg, &envelope.ErrorPayload{
		Name:    "PeepsyNotFoundError",
		Message: msg,
	})
}

func childErrorResponse(req envelope.Envelope, err error) envelope.Envelope {
	return envelope.NewErrorResponse(req.ID, 500, err.Error(), &envelope.ErrorPayload{
		Name:    "Error",
		Message: err.Error(),
	})
}
