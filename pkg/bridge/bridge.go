// Package bridge wires the control loop to the network and telemetry tasks.
package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/itohio/rctrl/pkg/latest"
	"github.com/itohio/rctrl/pkg/remote"
)

// Shutdown is a broadcast that fires at most once.
type Shutdown struct {
	once sync.Once
	done chan struct{}
}

// NewShutdown returns an untriggered signal.
func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Trigger fires the signal. Later calls do nothing.
func (s *Shutdown) Trigger() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel closed when the signal fires.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}

// Triggered reports whether the signal has fired.
func (s *Shutdown) Triggered() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Context returns a context cancelled when the signal fires.
func (s *Shutdown) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Task is a named long-running unit of the async side.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Bridge owns the channels shared by the control loop and the async tasks.
type Bridge struct {
	// Frames carries every frame from the control loop to telemetry.
	Frames chan remote.DataFrame
	// Commands carries client commands to the control loop.
	Commands chan remote.Command
	// Latest holds the most recent frame for network fan-out.
	Latest *latest.Value[remote.DataFrame]

	shutdown *Shutdown
}

// New creates the channel set.
func New(cfg config.BridgeConfig, shutdown *Shutdown) *Bridge {
	return &Bridge{
		Frames:   make(chan remote.DataFrame, cfg.FrameBuffer),
		Commands: make(chan remote.Command, cfg.CommandBuffer),
		Latest:   latest.New(remote.DataFrame{}),
		shutdown: shutdown,
	}
}

// Run runs tasks concurrently until each has returned. Tasks see a context
// cancelled by the shutdown signal. A failing task is logged and does not stop
// the others. The returned error combines all task failures.
func (b *Bridge) Run(tasks ...Task) error {
	ctx, cancel := b.shutdown.Context(context.Background())
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			err := task.Run(ctx)
			if err != nil {
				log.Printf("bridge: task %s failed after %v: %v", task.Name, time.Since(start).Round(time.Millisecond), err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", task.Name, err))
				mu.Unlock()
				return
			}
			log.Printf("bridge: task %s stopped", task.Name)
		}()
	}

	wg.Wait()
	return errs
}
