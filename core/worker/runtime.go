// Package worker implements the child-process side of the channel: the
// envelope demultiplexer, the sequential/concurrent execution modes, the
// heartbeat emitter, and the worker-originated request/response path
// symmetric to the master's own send.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
	"github.com/dmitrymomot/peepsy/core/pqueue"
	"github.com/dmitrymomot/peepsy/core/registry"
	"github.com/dmitrymomot/peepsy/core/stats"
	"github.com/dmitrymomot/peepsy/core/transport"
	"golang.org/x/sync/semaphore"
)

// DefaultHeartbeatInterval matches the master's default monitor cadence.
const DefaultHeartbeatInterval = 2 * time.Second

// DefaultSendTimeout is used for a worker-originated Send when the
// caller does not specify one.
const DefaultSendTimeout = 5 * time.Second

// sweepInterval is how often the sequential/bounded queue discards
// expired entries proactively, independent of dequeue-time checks.
const sweepInterval = 5 * time.Second

// defaultQueueTTL caps how long a queued request with no advisory
// timeout stays eligible for execution; it matches the largest request
// timeout a sender may configure, so it never expires work the sender
// is still waiting on.
const defaultQueueTTL = 5 * time.Minute

// shutdownPollInterval and shutdownPollTimeout bound how long graceful
// shutdown waits for in-flight requests to finish.
const (
	shutdownPollInterval = 100 * time.Millisecond
	shutdownPollTimeout  = 10 * time.Second
)

// Options configures a Runtime.
type Options struct {
	Mode              envelope.Mode
	MaxConcurrency    int
	HeartbeatInterval time.Duration
	SendTimeout       time.Duration
	Logger            *slog.Logger
}

// Runtime is the worker-side engine for one channel to a master: it
// demultiplexes inbound envelopes, executes REQUESTs against a handler
// registry under the configured mode, emits heartbeats, and supports
// worker-originated Send calls.
type Runtime struct {
	opts     Options
	channel  transport.Channel
	handlers *registry.Registry
	stats    *stats.Process
	logger   *slog.Logger

	queue *pqueue.Queue[envelope.Envelope]
	sem   *semaphore.Weighted
	wake  chan struct{}

	pendingMu sync.Mutex
	pending   map[string]chan envelope.Envelope

	shuttingDown atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Runtime bound to channel, serving handlers.
func New(channel transport.Channel, handlers *registry.Registry, opts Options) *Runtime {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Mode == "" {
		opts.Mode = envelope.ModeConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	r := &Runtime{
		opts:     opts,
		channel:  channel,
		handlers: handlers,
		stats:    &stats.Process{},
		logger:   opts.Logger,
		pending:  make(map[string]chan envelope.Envelope),
		wake:     make(chan struct{}, 1),
	}

	if opts.Mode == envelope.ModeSequential || opts.MaxConcurrency > 0 {
		r.queue = pqueue.New[envelope.Envelope]()
	}
	if opts.Mode == envelope.ModeConcurrent && opts.MaxConcurrency > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrency))
	}

	return r
}

// Run sends the INIT announcement, starts the heartbeat emitter and the
// queue runner (if any), and demultiplexes inbound envelopes until ctx
// is cancelled or the channel closes. It returns the reason the loop
// stopped (nil on a clean context cancellation or channel close).
func (r *Runtime) Run(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.stats.SetStatus("starting")

	if err := r.channel.Send(r.ctx, envelope.NewInit(r.opts.Mode)); err != nil {
		return fmt.Errorf("worker: send INIT: %w", err)
	}
	r.stats.SetStatus("healthy")

	r.wg.Add(1)
	go r.heartbeatLoop()

	if r.opts.Mode == envelope.ModeSequential {
		r.wg.Add(1)
		go r.sequentialLoop()
	} else if r.sem != nil {
		r.wg.Add(1)
		go r.boundedConcurrentLoop()
	}

	defer r.wg.Wait()

	for {
		select {
		case <-r.ctx.Done():
			return nil
		case env, ok := <-r.channel.Receive():
			if !ok {
				return nil
			}
			r.handleInbound(env)
		case err, ok := <-r.channel.Errs():
			if ok && err != nil {
				r.logger.Error("worker: transport error", logger.Error(err))
			}
		}
	}
}

func (r *Runtime) handleInbound(env envelope.Envelope) {
	switch env.Type {
	case envelope.TypeRequest:
		r.onRequest(env)
	case envelope.TypeResponse:
		r.onResponse(env)
	case envelope.TypeShutdown:
		go r.Shutdown(context.Background())
	default:
		r.logger.Debug("worker: ignoring unexpected envelope", slog.String("type", string(env.Type)))
	}
}

func (r *Runtime) onRequest(env envelope.Envelope) {
	if r.shuttingDown.Load() {
		r.logger.Debug("worker: dropping request during shutdown", logger.Action(env.Action))
		return
	}

	switch {
	case r.opts.Mode == envelope.ModeSequential:
		r.enqueue(env)
	case r.sem != nil:
		r.enqueue(env)
	default:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.executeAndRespond(env)
		}()
	}
}

func (r *Runtime) enqueue(env envelope.Envelope) {
	ttl := env.Timeout()
	if ttl <= 0 {
		ttl = defaultQueueTTL
	}
	r.queue.Enqueue(env, 0, ttl)
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// PID reports the operating system process ID this runtime announces
// on every heartbeat.
func (r *Runtime) PID() int {
	return os.Getpid()
}

// Stats exposes the runtime's live counters for embedding programs that
// want to surface their own status output.
func (r *Runtime) Stats() stats.Snapshot {
	return r.stats.Snapshot()
}
