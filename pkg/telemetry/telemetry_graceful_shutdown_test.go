package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/rctrl/pkg/remote"
)

func TestRun_StopsOnContext(t *testing.T) {
	sink := &recordingSink{}
	b := New(testConfig(50), sink, nil, nil)

	frames := make(chan remote.DataFrame)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, frames) }()

	frames <- frameAt(t0, 2)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("batcher did not stop")
	}
	b.Wait()

	_, counts := sink.snapshot()
	assert.Equal(t, []int{1}, counts)
}

func TestRun_DrainsQueuedFramesOnStop(t *testing.T) {
	sink := &recordingSink{}
	b := New(testConfig(50), sink, nil, nil)

	frames := make(chan remote.DataFrame, 16)
	for i := 0; i < 5; i++ {
		frames <- frameAt(t0.Add(time.Duration(i)*time.Millisecond), float64(i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, b.Run(ctx, frames))
	b.Wait()

	assert.Len(t, frames, 0)
	_, counts := sink.snapshot()
	assert.Equal(t, []int{5}, counts)
	assert.Equal(t, uint64(5), b.Stats().Records)
}
