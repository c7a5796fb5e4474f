// Package events implements the master's in-process notification bus:
// spawn, error, heartbeat-missed, and auto-restart notifications that
// never cross the channel and are never persisted. Delivery is
// synchronous and in-memory; there is no wire bus behind it.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names emitted by a master over its Emitter.
const (
	Spawn           = "spawn"
	Error           = "error"
	HeartbeatMissed = "heartbeat-missed"
	AutoRestart     = "auto-restart"
)

// Event is one notification delivered to subscribers. Payload holds the
// event-specific data (see SpawnPayload, ErrorPayload, and so on).
type Event struct {
	ID        string
	Name      string
	Target    string
	Payload   any
	CreatedAt time.Time
}

// SpawnPayload accompanies a Spawn event.
type SpawnPayload struct {
	PID int
}

// ErrorPayload accompanies an Error event.
type ErrorPayload struct {
	Err error
}

// HeartbeatMissedPayload accompanies a HeartbeatMissed event.
type HeartbeatMissedPayload struct {
	LastHeartbeatAt time.Time
	MissedFor       time.Duration
}

// AutoRestartPayload accompanies an AutoRestart event.
type AutoRestartPayload struct {
	OldPID  int
	NewPID  int
	Attempt int
	Reason  string
}

// Listener receives events emitted for the name it subscribed to.
type Listener func(Event)

// Emitter is a concurrency-safe, synchronous observer registry. Emit
// calls every listener registered for the event's name, in registration
// order, on the calling goroutine; a listener that panics is recovered
// and logged so one bad subscriber cannot take down the health monitor
// or restart controller that emitted the event.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger used to report a recovered listener panic.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an empty Emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		listeners: make(map[string][]Listener),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On registers fn to run whenever name is emitted. It returns an
// unsubscribe function.
func (e *Emitter) On(name string, fn Listener) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[name] = append(e.listeners[name], fn)
	idx := len(e.listeners[name]) - 1

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		ls := e.listeners[name]
		if idx >= len(ls) {
			return
		}
		// Mark removed rather than reslice, so concurrently-captured
		// indices from other unsubscribe closures stay valid.
		ls[idx] = nil
	}
}

// Emit synchronously notifies every listener registered for name with
// target and payload, stamping the event with a fresh ID and timestamp.
func (e *Emitter) Emit(name, target string, payload any) {
	e.mu.RLock()
	ls := append([]Listener(nil), e.listeners[name]...)
	e.mu.RUnlock()

	evt := Event{
		ID:        uuid.New().String(),
		Name:      name,
		Target:    target,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	for _, fn := range ls {
		if fn == nil {
			continue
		}
		e.dispatch(fn, evt)
	}
}

func (e *Emitter) dispatch(fn Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("events: listener panicked",
				slog.String("event_name", evt.Name),
				slog.String("target", evt.Target),
				slog.Any("recover", r))
		}
	}()
	fn(evt)
}
