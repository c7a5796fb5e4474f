// Package memchannel implements an in-process, in-memory Channel pair
// for tests and embedded demos that run master and worker in the same
// binary without forking a real child process.
package memchannel

import (
	"context"
	"sync"

	"github.com/dmitrymomot/peepsy/core/envelope"
)

// DefaultBufferSize is the default capacity of each directional queue.
const DefaultBufferSize = 64

// Pair returns two connected Channels, a and b: whatever a.Send writes
// arrives on b.Receive, and vice versa.
func Pair(bufferSize int) (a, b *Channel) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ab := make(chan envelope.Envelope, bufferSize)
	ba := make(chan envelope.Envelope, bufferSize)

	a = &Channel{out: ab, in: ba, errs: make(chan error, 1)}
	b = &Channel{out: ba, in: ab, errs: make(chan error, 1)}
	return a, b
}

// Channel is one side of an in-memory Pair.
type Channel struct {
	out  chan envelope.Envelope
	in   chan envelope.Envelope
	errs chan error

	closeOnce sync.Once
}

// Send implements transport.Channel.
func (c *Channel) Send(ctx context.Context, env envelope.Envelope) error {
	select {
	case c.out <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements transport.Channel.
func (c *Channel) Receive() <-chan envelope.Envelope {
	return c.in
}

// Errs implements transport.Channel. The in-memory pair never produces
// transport-level errors on its own.
func (c *Channel) Errs() <-chan error {
	return c.errs
}

// Close implements transport.Channel. It closes this side's outbound
// queue; the peer will observe Receive's channel close once it drains
// any buffered envelopes.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.out)
	})
	return nil
}
