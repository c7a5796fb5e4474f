package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
	pkgerrors "github.com/pkg/errors"
)

// executeAndRespond looks up the handler for env.Action, runs it with
// panic recovery, measures its duration, and sends back the matching
// RESPONSE envelope. It is safe to call concurrently for different
// envelopes; the caller is responsible for any concurrency limiting.
func (r *Runtime) executeAndRespond(env envelope.Envelope) {
	r.stats.BeginRequest()
	start := time.Now()

	handler, ok := r.handlers.Lookup(env.Action)
	if !ok {
		r.stats.EndRequest(time.Since(start))
		r.stats.RecordError()
		r.respond(env, notFoundResponse(env))
		return
	}

	ctx := context.Background()
	if env.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.Timeout())
		defer cancel()
	}

	data, err := r.safeCall(ctx, handler.Call, env.Data)
	duration := time.Since(start)
	r.stats.EndRequest(duration)
	r.logger.Debug("worker: handled request",
		logger.Action(env.Action), logger.Duration(duration))

	if err != nil {
		r.stats.RecordError()
		r.respond(env, errorResponse(env, err))
		return
	}
	r.respond(env, envelope.NewResponse(env.ID, 200, data))
}

func (r *Runtime) safeCall(ctx context.Context, call func(context.Context, json.RawMessage) (json.RawMessage, error), data json.RawMessage) (result json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return call(ctx, data)
}

func (r *Runtime) respond(req envelope.Envelope, resp envelope.Envelope) {
	sendCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.channel.Send(sendCtx, resp); err != nil {
		r.logger.Error("worker: failed to send response",
			logger.ID("id", req.ID), logger.Action(req.Action), logger.Error(err))
	}
}

func notFoundResponse(req envelope.Envelope) envelope.Envelope {
	msg := fmt.Sprintf("No handler registered for action: %s", req.Action)
	return envelope.NewErrorResponse(req.ID, 404, msg, &envelope.ErrorPayload{
		Name:    "PeepsyNotFoundError",
		Message: msg,
	})
}

func errorResponse(req envelope.Envelope, err error) envelope.Envelope {
	stack := fmt.Sprintf("%+v", pkgerrors.WithStack(err))
	return envelope.NewErrorResponse(req.ID, 500, err.Error(), &envelope.ErrorPayload{
		Name:    "Error",
		Message: err.Error(),
		Stack:   stack,
	})
}

