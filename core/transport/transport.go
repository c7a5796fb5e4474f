// Package transport defines the Channel abstraction a master uses to
// exchange envelopes with one child process, and the concrete
// implementations of it: an in-process pair for tests and embedded
// demos, a newline-delimited-JSON pipe over a spawned OS process, and a
// loopback WebSocket transport for out-of-process worker pools running
// on the same host.
package transport

import (
	"context"

	"github.com/dmitrymomot/peepsy/core/envelope"
)

// Channel carries envelopes to and from exactly one peer. Send may be
// called concurrently with Receive, but concurrent Send calls are not
// guaranteed to preserve relative ordering unless the implementation
// documents otherwise.
type Channel interface {
	// Send writes env to the peer. It returns once the envelope has been
	// handed off to the transport, not once the peer has processed it.
	Send(ctx context.Context, env envelope.Envelope) error

	// Receive returns a channel of envelopes read from the peer. The
	// channel is closed when the peer disconnects or Close is called.
	Receive() <-chan envelope.Envelope

	// Errs returns a channel of transport-level errors (decode failures,
	// broken pipes). It is not closed until Close is called.
	Errs() <-chan error

	// Close releases the underlying transport. Receive's channel will be
	// closed shortly after Close returns.
	Close() error
}
