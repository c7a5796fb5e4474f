package peepsy

import (
	coreworker "github.com/dmitrymomot/peepsy/core/worker"
)

// Worker is the child-process side engine for one channel to a master:
// it demultiplexes inbound envelopes, executes requests against a
// handler registry under the configured execution mode, emits
// heartbeats, and supports worker-originated Send calls. See
// core/worker.Runtime for the implementation.
type Worker = coreworker.Runtime

// WorkerOptions configures a Worker.
type WorkerOptions = coreworker.Options

// Worker default values, re-exported from core/worker.
const (
	DefaultWorkerHeartbeatInterval = coreworker.DefaultHeartbeatInterval
	DefaultWorkerSendTimeout       = coreworker.DefaultSendTimeout
)

// NewWorker constructs a Worker bound to channel, serving handlers.
var NewWorker = coreworker.New
