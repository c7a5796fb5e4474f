// Package stdio implements the default out-of-process Channel: one
// newline-delimited JSON envelope per line, written to a child's stdin
// and read from its stdout, the same framing Node's child_process IPC
// module this system replaces would have used over a pipe.
package stdio

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/peepsy/core/envelope"
)

// Channel adapts an io.Writer/io.Reader pair (a child process's stdin
// and stdout) into a transport.Channel.
type Channel struct {
	w       io.Writer
	writeMu sync.Mutex

	recv chan envelope.Envelope
	errs chan error
	done chan struct{}

	closeOnce sync.Once
	closer    io.Closer

	logger *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger used for decode-error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps w (typically a child's stdin) and r (typically its stdout)
// into a Channel. closer, if non-nil, is closed by Close; pass the
// child's stdin pipe so Close also signals EOF to the reading side.
func New(w io.Writer, r io.Reader, closer io.Closer, opts ...Option) *Channel {
	c := &Channel{
		w:      w,
		recv:   make(chan envelope.Envelope, 64),
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
		closer: closer,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop(r)
	return c
}

func (c *Channel) readLoop(r io.Reader) {
	defer close(c.recv)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		env, err := envelope.Decode(line)
		if err != nil {
			c.logger.Error("stdio: failed to decode line", slog.String("error", err.Error()))
			c.reportErr(err)
			continue
		}

		select {
		case c.recv <- env:
		case <-c.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.reportErr(err)
	}
}

func (c *Channel) reportErr(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Send implements transport.Channel. Writes are serialized so
// concurrent Send calls never interleave partial lines.
func (c *Channel) Send(ctx context.Context, env envelope.Envelope) error {
	data, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		_, err := c.w.Write(data)
		done <- result{err}
	}()

	select {
	case res := <-done:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements transport.Channel.
func (c *Channel) Receive() <-chan envelope.Envelope {
	return c.recv
}

// Errs implements transport.Channel.
func (c *Channel) Errs() <-chan error {
	return c.errs
}

// Close implements transport.Channel.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}
