// Package wschannel implements a loopback WebSocket Channel, an
// alternative to stdio for worker pools run as separate OS processes on
// the same host that prefer a socket handshake over inherited pipes
// (for example, workers started independently of the master and dialing
// in rather than being spawned by it).
package wschannel

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Channel wraps a *websocket.Conn as a transport.Channel, framing one
// envelope per text message.
type Channel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	recv    chan envelope.Envelope
	errs    chan error

	closeOnce sync.Once
	logger    *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger used for decode/read error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Accept upgrades an inbound HTTP request to a WebSocket connection and
// wraps it as a Channel, for a master listening for worker callbacks.
func Accept(w http.ResponseWriter, r *http.Request, opts ...Option) (*Channel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newChannel(conn, opts...), nil
}

// Dial connects to a listening master's loopback WebSocket endpoint and
// wraps the connection as a Channel, for a worker that dials in rather
// than being spawned with an inherited stdio pipe.
func Dial(ctx context.Context, url string, opts ...Option) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newChannel(conn, opts...), nil
}

func newChannel(conn *websocket.Conn, opts ...Option) *Channel {
	c := &Channel{
		conn:   conn,
		recv:   make(chan envelope.Envelope, 64),
		errs:   make(chan error, 8),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c
}

func (c *Channel) readLoop() {
	defer close(c.recv)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.reportErr(err)
			}
			return
		}

		env, err := envelope.Decode(data)
		if err != nil {
			c.logger.Error("wschannel: failed to decode message", slog.String("error", err.Error()))
			c.reportErr(err)
			continue
		}
		c.recv <- env
	}
}

func (c *Channel) reportErr(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Send implements transport.Channel.
func (c *Channel) Send(ctx context.Context, env envelope.Envelope) error {
	data, err := envelope.Encode(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
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
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
	})
	return err
}
