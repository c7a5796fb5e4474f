package memchannel_test

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/transport/memchannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairDeliversAToB(t *testing.T) {
	a, b := memchannel.Pair(8)
	defer a.Close()
	defer b.Close()

	want := envelope.NewHeartbeat(123, 0)
	require.NoError(t, a.Send(context.Background(), want))

	select {
	case got := <-b.Receive():
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestPairIsBidirectional(t *testing.T) {
	a, b := memchannel.Pair(8)
	defer a.Close()
	defer b.Close()

	require.NoError(t, b.Send(context.Background(), envelope.NewShutdown()))
	select {
	case got := <-a.Receive():
		assert.Equal(t, envelope.TypeShutdown, got.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestSendRespectsContextCancellation(t *testing.T) {
	a, b := memchannel.Pair(1)
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Send(context.Background(), envelope.NewShutdown()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Send(ctx, envelope.NewShutdown())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseClosesReceiveChannel(t *testing.T) {
	a, b := memchannel.Pair(8)
	defer b.Close()

	require.NoError(t, a.Close())

	select {
	case _, ok := <-b.Receive():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
