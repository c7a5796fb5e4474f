// Package registry implements the dynamic, string-keyed handler
// registries used on both sides of the channel: the master registers
// handlers for child-originated REQUESTs, and each worker registers
// handlers for master-originated REQUESTs. Registration is exposed as a
// generic function parameterized over the request and response types;
// internally, payloads cross as an opaque json.RawMessage decoded by the
// handler that owns that action.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler is the type-erased contract every registered action satisfies:
// decode whatever the action's data payload holds, run it, and produce a
// result payload to serialize back.
type Handler interface {
	Call(ctx context.Context, data json.RawMessage) (json.RawMessage, error)
}

// HandlerFunc adapts a plain decode/encode function into a Handler.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (json.RawMessage, error)

// Call implements Handler.
func (f HandlerFunc) Call(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
	return f(ctx, data)
}

// Registry is a concurrency-safe map from action name to Handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// RegisterFunc registers a type-erased Handler directly, replacing any
// handler already registered for the same action.
func (r *Registry) RegisterFunc(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Register adapts a strongly-typed handler function for action,
// replacing any handler already registered for it. Req is JSON-decoded
// from the incoming data payload; the returned Resp is JSON-encoded into
// the outgoing one.
func Register[Req, Resp any](r *Registry, action string, fn func(context.Context, Req) (Resp, error)) {
	r.RegisterFunc(action, HandlerFunc(func(ctx context.Context, data json.RawMessage) (json.RawMessage, error) {
		var req Req
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, fmt.Errorf("decode payload for action %q: %w", action, err)
			}
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("encode response for action %q: %w", action, err)
		}
		return out, nil
	}))
}

// Unregister removes the handler for action, if any.
func (r *Registry) Unregister(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, action)
}

// Lookup returns the handler registered for action, if any.
func (r *Registry) Lookup(action string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[action]
	return h, ok
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
