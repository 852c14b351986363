package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_Once(t *testing.T) {
	s := NewShutdown()
	assert.False(t, s.Triggered())

	s.Trigger()
	s.Trigger()
	assert.True(t, s.Triggered())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestShutdown_Context(t *testing.T) {
	s := NewShutdown()
	ctx, cancel := s.Context(context.Background())
	defer cancel()

	assert.NoError(t, ctx.Err())
	s.Trigger()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by shutdown")
	}
}

func TestNew_Channels(t *testing.T) {
	b := New(config.BridgeConfig{FrameBuffer: 16, CommandBuffer: 8}, NewShutdown())
	assert.Equal(t, 16, cap(b.Frames))
	assert.Equal(t, 8, cap(b.Commands))
	require.NotNil(t, b.Latest)
	assert.Equal(t, uint64(0), b.Latest.Version())
}

func TestRun_WaitsForAllTasks(t *testing.T) {
	s := NewShutdown()
	b := New(config.BridgeConfig{FrameBuffer: 1, CommandBuffer: 1}, s)

	var stopped atomic.Int32
	waiter := func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		stopped.Add(1)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- b.Run(Task{Name: "a", Run: waiter}, Task{Name: "b", Run: waiter})
	}()

	time.Sleep(20 * time.Millisecond)
	s.Trigger()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not return after shutdown")
	}
	assert.Equal(t, int32(2), stopped.Load())
}

func TestRun_PartialFailure(t *testing.T) {
	s := NewShutdown()
	b := New(config.BridgeConfig{FrameBuffer: 1, CommandBuffer: 1}, s)

	bindErr := errors.New("address in use")
	siblingRunning := make(chan struct{})
	var siblingSawShutdown atomic.Bool

	done := make(chan error, 1)
	go func() {
		done <- b.Run(
			Task{Name: "listener", Run: func(ctx context.Context) error { return bindErr }},
			Task{Name: "batcher", Run: func(ctx context.Context) error {
				close(siblingRunning)
				<-ctx.Done()
				siblingSawShutdown.Store(true)
				return nil
			}},
		)
	}()

	<-siblingRunning
	select {
	case <-done:
		t.Fatal("a failing task must not stop its sibling")
	case <-time.After(50 * time.Millisecond):
	}

	s.Trigger()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, bindErr)
		assert.Contains(t, err.Error(), "listener")
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not return after shutdown")
	}
	assert.True(t, siblingSawShutdown.Load())
}
