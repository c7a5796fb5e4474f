package stdio_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/transport/stdio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func TestSendWritesNewlineDelimitedJSON(t *testing.T) {
	var buf bytes.Buffer
	c := stdio.New(&buf, bytes.NewReader(nil), nil)
	defer c.Close()

	require.NoError(t, c.Send(context.Background(), envelope.NewHeartbeat(7, 2)))

	var decoded envelope.Envelope
	line := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &decoded))
	assert.Equal(t, envelope.TypeHeartbeat, decoded.Type)
	assert.Equal(t, 7, decoded.PID)
}

func TestReceiveDecodesIncomingLines(t *testing.T) {
	r, w := io.Pipe()
	c := stdio.New(io.Discard, r, nil)
	defer c.Close()

	go func() {
		env := envelope.NewRequest("id-1", "ping", json.RawMessage(`{}`), time.Second)
		data, _ := json.Marshal(env)
		w.Write(append(data, '\n'))
		w.Close()
	}()

	select {
	case got := <-c.Receive():
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "ping", got.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestReceiveNormalizesNestedRequestShape(t *testing.T) {
	r, w := io.Pipe()
	c := stdio.New(io.Discard, r, nil)
	defer c.Close()

	go func() {
		w.Write([]byte(`{"type":"REQUEST","request":{"id":"n-1","action":"do","data":{}},"timeout":1000}` + "\n"))
		w.Close()
	}()

	select {
	case got := <-c.Receive():
		assert.Equal(t, "n-1", got.ID)
		assert.Equal(t, "do", got.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestReceiveReportsDecodeErrorsWithoutStopping(t *testing.T) {
	r, w := io.Pipe()
	c := stdio.New(io.Discard, r, nil)
	defer c.Close()

	go func() {
		w.Write([]byte("not json\n"))
		data, _ := json.Marshal(envelope.NewShutdown())
		w.Write(append(data, '\n'))
		w.Close()
	}()

	select {
	case err := <-c.Errs():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decode error")
	}

	select {
	case got := <-c.Receive():
		assert.Equal(t, envelope.TypeShutdown, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subsequent valid envelope")
	}
}

func TestCloseClosesUnderlyingCloser(t *testing.T) {
	closed := false
	closer := closeFunc(func() error {
		closed = true
		return nil
	})
	c := stdio.New(io.Discard, bytes.NewReader(nil), closer)

	require.NoError(t, c.Close())
	assert.True(t, closed)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
