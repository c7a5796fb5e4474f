package worker

import (
	"context"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
)

// heartbeatLoop emits a HEARTBEAT envelope every HeartbeatInterval until
// the runtime's context is cancelled. Emit failures are swallowed, per
// the health protocol: a missed heartbeat is the master's problem to
// detect, not the worker's to retry.
func (r *Runtime) heartbeatLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.stats.Heartbeat()
			active := int(r.stats.Active())
			env := envelope.NewHeartbeat(r.PID(), active)

			sendCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			err := r.channel.Send(sendCtx, env)
			cancel()

			if err != nil {
				r.logger.Debug("worker: heartbeat send failed", logger.Error(err))
			}
		}
	}
}
