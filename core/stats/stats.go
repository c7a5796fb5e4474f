// Package stats tracks per-worker request counters and a smoothed
// average response time with atomics instead of a mutex-guarded struct.
package stats

import (
	"sync/atomic"
	"time"
)

// emaAlpha is the exponential-moving-average smoothing factor applied to
// AvgResponseTime. The very first sample seeds the average outright;
// every sample after that is alpha*sample + (1-alpha)*previous.
const emaAlpha = 0.2

// Process holds the observability counters for one worker target. The
// zero value is ready to use. All mutators are safe for concurrent use.
type Process struct {
	requestsHandled int64
	requestsActive  int32
	errors          int64
	avgResponseNs   int64 // stored as int64 nanoseconds behind atomic ops
	lastActivity    int64 // unix nano
	lastHeartbeatAt int64 // unix nano

	status atomic.Value // string
}

// Snapshot is an immutable point-in-time read of a Process.
type Snapshot struct {
	RequestsHandled int64
	RequestsActive  int32
	Errors          int64
	AvgResponseTime time.Duration
	LastActivity    time.Time
	LastHeartbeatAt time.Time
	Status          string
}

// BeginRequest increments the active-request counter and records activity.
func (p *Process) BeginRequest() {
	atomic.AddInt32(&p.requestsActive, 1)
	p.touchActivity()
}

// EndRequest decrements the active-request counter, records the sample
// into the EMA, and bumps requests_handled. Call for successful and
// failed completions alike; call RecordError separately for failures.
func (p *Process) EndRequest(duration time.Duration) {
	atomic.AddInt32(&p.requestsActive, -1)
	atomic.AddInt64(&p.requestsHandled, 1)
	p.sample(duration)
	p.touchActivity()
}

// RecordError increments the error counter. It does not touch
// requests_active; callers still call EndRequest (or decrement directly)
// for the in-flight bookkeeping.
func (p *Process) RecordError() {
	atomic.AddInt64(&p.errors, 1)
}

// Heartbeat records that a heartbeat was just received.
func (p *Process) Heartbeat() {
	now := time.Now()
	atomic.StoreInt64(&p.lastHeartbeatAt, now.UnixNano())
	atomic.StoreInt64(&p.lastActivity, now.UnixNano())
}

// SetStatus sets the worker's health label (e.g. "starting", "healthy",
// "unhealthy", "restarting", "gone").
func (p *Process) SetStatus(status string) {
	p.status.Store(status)
}

func (p *Process) touchActivity() {
	atomic.StoreInt64(&p.lastActivity, time.Now().UnixNano())
}

// sample folds one response-time observation into the EMA using
// alpha=0.2, seeding the average with the first sample seen.
func (p *Process) sample(d time.Duration) {
	for {
		prev := atomic.LoadInt64(&p.avgResponseNs)
		var next int64
		if prev == 0 {
			next = int64(d)
		} else {
			next = int64(emaAlpha*float64(d) + (1-emaAlpha)*float64(prev))
		}
		if atomic.CompareAndSwapInt64(&p.avgResponseNs, prev, next) {
			return
		}
	}
}

// Active returns the current in-flight request count.
func (p *Process) Active() int32 {
	return atomic.LoadInt32(&p.requestsActive)
}

// LastActivity returns the time of the most recent observed activity
// (request start/end or heartbeat), or the zero time if none yet.
func (p *Process) LastActivity() time.Time {
	return nanoToTime(atomic.LoadInt64(&p.lastActivity))
}

// LastHeartbeatAt returns the time of the most recent heartbeat, or the
// zero time if none yet received.
func (p *Process) LastHeartbeatAt() time.Time {
	return nanoToTime(atomic.LoadInt64(&p.lastHeartbeatAt))
}

// Snapshot returns a consistent-enough read of all counters for
// observability purposes. Individual fields may be read using slightly
// different atomic loads and are not transactionally consistent with
// each other, which is acceptable for stats surfaced to an operator.
func (p *Process) Snapshot() Snapshot {
	status, _ := p.status.Load().(string)
	return Snapshot{
		RequestsHandled: atomic.LoadInt64(&p.requestsHandled),
		RequestsActive:  atomic.LoadInt32(&p.requestsActive),
		Errors:          atomic.LoadInt64(&p.errors),
		AvgResponseTime: time.Duration(atomic.LoadInt64(&p.avgResponseNs)),
		LastActivity:    p.LastActivity(),
		LastHeartbeatAt: p.LastHeartbeatAt(),
		Status:          status,
	}
}

func nanoToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
