// Package control runs the fixed-period loop that owns the instrument hardware.
package control

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/rctrl/pkg/ads101x"
	"github.com/itohio/rctrl/pkg/remote"
	"github.com/itohio/rctrl/pkg/sensor"
	"github.com/itohio/rctrl/pkg/valve"
)

// State is the lifecycle stage of a Context.
type State int32

const (
	Initializing State = iota
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// InitializationError reports hardware that could not be opened or configured.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("control: initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Config contains loop parameters.
type Config struct {
	Period  time.Duration
	Startup ads101x.ConfigWord
}

// Context owns the converter and the valve. Only the goroutine running Run
// (or calling Tick) may touch them.
type Context struct {
	adc      *ads101x.Adapter
	conv     sensor.Sensor[sensor.Pressure]
	valve    valve.Actuator
	period   time.Duration
	commands <-chan remote.Command
	frames   chan<- remote.DataFrame
	now      func() time.Time

	valveOpen bool

	state   atomic.Int32
	ticks   atomic.Uint64
	dropped atomic.Uint64
}

// New builds the converter adapter on tr, writes the startup configuration and
// closes the valve. On success the Context owns tr and act; on failure tr is
// closed and act is left to the caller.
func New(cfg Config, tr ads101x.Transport, conv sensor.Sensor[sensor.Pressure], act valve.Actuator,
	commands <-chan remote.Command, frames chan<- remote.DataFrame) (*Context, error) {
	if cfg.Period <= 0 {
		return nil, &InitializationError{Err: multierr.Append(errors.New("loop period must be positive"), tr.Close())}
	}

	adc, err := ads101x.New(tr)
	if err != nil {
		return nil, &InitializationError{Err: multierr.Append(err, tr.Close())}
	}

	if err := adc.Configure(cfg.Startup); err != nil {
		return nil, &InitializationError{Err: multierr.Append(err, adc.Close())}
	}

	if err := act.Set(false); err != nil {
		return nil, &InitializationError{Err: multierr.Append(fmt.Errorf("close valve: %w", err), adc.Close())}
	}

	log.Printf("control: converter configured: %s", adc.Config())

	return &Context{
		adc:      adc,
		conv:     conv,
		valve:    act,
		period:   cfg.Period,
		commands: commands,
		frames:   frames,
		now:      time.Now,
	}, nil
}

// State returns the current lifecycle stage.
func (c *Context) State() State {
	return State(c.state.Load())
}

// Ticks returns the number of completed ticks.
func (c *Context) Ticks() uint64 {
	return c.ticks.Load()
}

// Dropped returns the number of frames dropped because the frame channel was full.
func (c *Context) Dropped() uint64 {
	return c.dropped.Load()
}

// Tick applies at most one pending command, samples the sensor and offers the
// resulting frame to the frame channel. It never blocks on either channel.
func (c *Context) Tick() remote.DataFrame {
	frame := remote.DataFrame{Time: c.now()}

	select {
	case cmd := <-c.commands:
		frame.Message = c.apply(cmd)
	default:
	}

	open := c.valveOpen
	frame.Valve = &open

	if p, err := ads101x.Read(c.adc, c.conv); err != nil {
		log.Printf("control: sensor read failed: %v", err)
	} else {
		frame.Sensor = &p
	}

	select {
	case c.frames <- frame:
	default:
		n := c.dropped.Add(1)
		log.Printf("control: frame channel full, dropping frame (%d dropped)", n)
	}

	c.ticks.Add(1)
	return frame
}

func (c *Context) apply(cmd remote.Command) string {
	var open bool
	switch cmd {
	case remote.ValveOpen:
		open = true
	case remote.ValveClose:
		open = false
	default:
		log.Printf("control: ignoring unknown command %s", cmd)
		return fmt.Sprintf("unknown command %s", cmd)
	}

	if err := c.valve.Set(open); err != nil {
		log.Printf("control: %s failed: %v", cmd, err)
		return fmt.Sprintf("%s failed: %v", cmd, err)
	}
	c.valveOpen = open

	if open {
		return "valve opened"
	}
	return "valve closed"
}

// Run ticks every period on a locked OS thread until shutdown is closed, then
// releases the hardware. Shutdown is observed between ticks.
func (c *Context) Run(shutdown <-chan struct{}) error {
	if !c.state.CompareAndSwap(int32(Initializing), int32(Running)) {
		return fmt.Errorf("control: cannot run from state %s", c.State())
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	timer := time.NewTimer(c.period)
	timer.Stop()

	for {
		select {
		case <-shutdown:
			return c.drain()
		default:
		}

		start := time.Now()
		c.Tick()

		wait := c.period - time.Since(start)
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-shutdown:
			timer.Stop()
			return c.drain()
		case <-timer.C:
		}
	}
}

func (c *Context) drain() error {
	c.state.Store(int32(Draining))

	err := multierr.Combine(c.adc.Close(), c.valve.Close())
	if err != nil {
		log.Printf("control: releasing hardware: %v", err)
	}

	c.state.Store(int32(Terminated))
	log.Printf("control: stopped after %d ticks, %d frames dropped", c.Ticks(), c.Dropped())

	return err
}
