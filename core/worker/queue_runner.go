package worker

import (
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/logger"
)

// sequentialLoop is the single consumer for sequential mode: it runs at
// most one handler at a time, draining the priority queue in order and
// waking whenever enqueue signals new work or the sweep ticker fires.
func (r *Runtime) sequentialLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		for {
			env, ok := r.queue.Dequeue()
			if !ok {
				break
			}
			r.executeAndRespond(env)
		}

		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
		case <-ticker.C:
			if n := r.queue.CleanExpired(); n > 0 {
				r.logger.Debug("worker: swept expired queue entries", logger.Count("count", n))
			}
		}
	}
}

// boundedConcurrentLoop pumps queued requests into handler goroutines up
// to the configured concurrency cap, relaunching whenever a slot frees
// or new work arrives.
func (r *Runtime) boundedConcurrentLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		for {
			if !r.sem.TryAcquire(1) {
				break
			}
			env, ok := r.queue.Dequeue()
			if !ok {
				r.sem.Release(1)
				break
			}
			r.wg.Add(1)
			go func(req envelope.Envelope) {
				defer r.wg.Done()
				defer r.sem.Release(1)
				defer func() {
					select {
					case r.wake <- struct{}{}:
					default:
					}
				}()
				r.executeAndRespond(req)
			}(env)
		}

		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
		case <-ticker.C:
			if n := r.queue.CleanExpired(); n > 0 {
				r.logger.Debug("worker: swept expired queue entries", logger.Count("count", n))
			}
		}
	}
}
