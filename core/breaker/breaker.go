// Package breaker wraps sony/gobreaker per dispatch target so a run of
// timeouts or process errors against one worker trips its breaker and
// fails dispatch fast instead of continuing to queue work at a target
// the health monitor has not yet declared unhealthy.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Settings configures every per-target breaker a Registry creates.
type Settings struct {
	// MaxRequests is the number of requests allowed to pass through in
	// the half-open state.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state's failure-count
	// reset; zero never resets.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker after this many consecutive
	// dispatch failures against a target.
	ConsecutiveFailures uint32
}

// DefaultSettings trips a breaker after five consecutive failures, with
// a 30s cooldown before probing.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:         1,
		Interval:            0,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Registry lazily creates and caches one *gobreaker.CircuitBreaker per
// dispatch target.
type Registry struct {
	settings Settings

	mu sync.Mutex
	cb map[string]*gobreaker.CircuitBreaker
}

// NewRegistry returns an empty Registry using settings for every target
// it creates a breaker for.
func NewRegistry(settings Settings) *Registry {
	return &Registry{settings: settings, cb: make(map[string]*gobreaker.CircuitBreaker)}
}

func (r *Registry) breakerFor(target string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.cb[target]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        target,
		MaxRequests: r.settings.MaxRequests,
		Interval:    r.settings.Interval,
		Timeout:     r.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.settings.ConsecutiveFailures
		},
	})
	r.cb[target] = cb
	return cb
}

// Execute runs fn through target's breaker, returning gobreaker.ErrOpenState
// or gobreaker.ErrTooManyRequests without calling fn when the breaker is
// tripped or probing.
func (r *Registry) Execute(ctx context.Context, target string, fn func(context.Context) (any, error)) (any, error) {
	cb := r.breakerFor(target)
	return cb.Execute(func() (any, error) {
		return fn(ctx)
	})
}

// State reports the current breaker state for target ("closed", "open",
// "half-open"), or "closed" if no breaker has been created for it yet.
func (r *Registry) State(target string) string {
	r.mu.Lock()
	cb, ok := r.cb[target]
	r.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed.String()
	}
	return cb.State().String()
}

// Remove discards the breaker for target, for use when a target is
// permanently removed from the dispatcher.
func (r *Registry) Remove(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cb, target)
}
