package worker

import (
	"context"
	"time"

	"github.com/dmitrymomot/peepsy/core/logger"
)

// Shutdown implements the worker side of graceful stop: it stops
// accepting new requests, waits for in-flight ones to finish (bounded by
// shutdownPollTimeout), clears any queued work, stops the demux and
// heartbeat loops, and disconnects from the channel. It always returns
// nil; the exit code 0 it implies is the caller's concern (the process
// that embeds this runtime simply returns from main).
func (r *Runtime) Shutdown(ctx context.Context) error {
	if !r.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	r.stats.SetStatus("restarting")

	deadline := time.Now().Add(shutdownPollTimeout)
waitLoop:
	for time.Now().Before(deadline) {
		if r.stats.Active() == 0 {
			break
		}
		select {
		case <-ctx.Done():
			break waitLoop
		case <-time.After(shutdownPollInterval):
		}
	}

	if r.queue != nil {
		r.queue.Clear()
	}

	if r.cancel != nil {
		r.cancel()
	}

	if err := r.channel.Close(); err != nil {
		r.logger.Debug("worker: channel close during shutdown", logger.Error(err))
	}

	r.stats.SetStatus("gone")
	return nil
}

// IsShuttingDown reports whether Shutdown has been called.
func (r *Runtime) IsShuttingDown() bool {
	return r.shuttingDown.Load()
}
