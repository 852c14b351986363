package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/rctrl/pkg/remote"
)

func TestServe_ShutdownKeepsOpenConnections(t *testing.T) {
	s, slot, commands := newService(4)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	ws := dial(t, addr)
	require.Eventually(t, func() bool { return s.connections.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}

	_, _, err = websocket.DefaultDialer.Dial(wsURL(addr), nil)
	assert.Error(t, err, "no new connections after shutdown")

	slot.Set(sampleFrame(4))
	got := readFrame(t, ws)
	require.NotNil(t, got.Sensor)
	assert.Equal(t, 4.0, got.Sensor.Value)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, remote.EncodeCommand(remote.ValveClose)))
	assert.Equal(t, remote.ValveClose, receive(t, commands))
}

func TestStream_ClosedClientDoesNotAffectOthers(t *testing.T) {
	s, slot, commands := newService(4)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, ln) }()

	healthy := dial(t, addr)
	broken := dial(t, addr)
	require.Eventually(t, func() bool { return s.connections.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Drop the socket without a close handshake.
	require.NoError(t, broken.UnderlyingConn().Close())

	slot.Set(sampleFrame(5))
	got := readFrame(t, healthy)
	require.NotNil(t, got.Sensor)
	assert.Equal(t, 5.0, got.Sensor.Value)

	require.Eventually(t, func() bool { return s.connections.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	slot.Set(sampleFrame(6))
	got = readFrame(t, healthy)
	require.NotNil(t, got.Sensor)
	assert.Equal(t, 6.0, got.Sensor.Value)

	require.NoError(t, healthy.WriteMessage(websocket.BinaryMessage, remote.EncodeCommand(remote.ValveOpen)))
	assert.Equal(t, remote.ValveOpen, receive(t, commands))

	// The listener still accepts new clients.
	dial(t, addr)
	require.Eventually(t, func() bool { return s.connections.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}
