package wschannel_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/transport/wschannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialAndAcceptExchangeEnvelopes(t *testing.T) {
	accepted := make(chan *wschannel.Channel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ch, err := wschannel.Accept(w, r)
		require.NoError(t, err)
		accepted <- ch
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := wschannel.Dial(context.Background(), wsURL)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()

	want := envelope.NewHeartbeat(99, 1)
	require.NoError(t, client.Send(context.Background(), want))

	select {
	case got := <-server.Receive():
		assert.Equal(t, want.PID, got.PID)
		assert.Equal(t, envelope.TypeHeartbeat, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestCloseStopsReceiveChannel(t *testing.T) {
	accepted := make(chan *wschannel.Channel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ch, err := wschannel.Accept(w, r)
		require.NoError(t, err)
		accepted <- ch
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := wschannel.Dial(context.Background(), wsURL)
	require.NoError(t, err)

	server := <-accepted
	defer server.Close()

	require.NoError(t, client.Close())

	select {
	case _, ok := <-server.Receive():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
