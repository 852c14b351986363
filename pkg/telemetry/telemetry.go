// Package telemetry batches data frames into line protocol and publishes the
// latest frame for the network side.
package telemetry

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/rctrl/pkg/latest"
	"github.com/itohio/rctrl/pkg/lineproto"
	"github.com/itohio/rctrl/pkg/remote"
)

// Config contains batching parameters.
type Config struct {
	// FlushThreshold is the number of records that triggers a flush.
	FlushThreshold int
	// FanoutInterval is the minimum time between updates of the latest slot.
	FanoutInterval time.Duration
	// InitialCapacity is the first buffer preallocation in bytes.
	InitialCapacity int
	Precision       lineproto.Precision
	// WriteTimeout bounds a single flush. Zero means no bound.
	WriteTimeout time.Duration
}

// Stats are running totals of a Batcher.
type Stats struct {
	Frames   uint64
	Records  uint64
	Flushes  uint64
	Failures uint64
	// Capacity is the current buffer preallocation in bytes.
	Capacity int
}

// Batcher consumes frames, fans a rate-limited subset out to the latest slot
// and writes every record to the sink in batches.
type Batcher struct {
	cfg    Config
	sink   Sink
	latest *latest.Value[remote.DataFrame]
	tags   []lineproto.Tag
	now    func() time.Time

	buf        strings.Builder
	entries    int
	capacity   int
	lastFanout time.Time

	inflight sync.WaitGroup
	frames   atomic.Uint64
	records  atomic.Uint64
	flushes  atomic.Uint64
	failures atomic.Uint64
	capStat  atomic.Int64
}

// New creates a batcher. latest may be nil, in which case nothing is fanned out.
func New(cfg Config, sink Sink, slot *latest.Value[remote.DataFrame], tags []lineproto.Tag) *Batcher {
	if cfg.FlushThreshold < 1 {
		cfg.FlushThreshold = 1
	}
	if sink == nil {
		sink = Discard{}
	}

	b := &Batcher{
		cfg:      cfg,
		sink:     sink,
		latest:   slot,
		tags:     tags,
		now:      time.Now,
		capacity: cfg.InitialCapacity,
	}
	b.buf.Grow(b.capacity)
	b.capStat.Store(int64(b.capacity))
	return b
}

// Run processes frames until ctx is done or frames is closed. Frames already
// queued when ctx is done are still processed. The residual buffer is handed
// off as a final flush; Run does not wait for it.
func (b *Batcher) Run(ctx context.Context, frames <-chan remote.DataFrame) error {
	defer func() {
		b.flush()
		s := b.Stats()
		log.Printf("telemetry: stopped after %d frames, %d records in %d flushes (%d failed)",
			s.Frames, s.Records, s.Flushes, s.Failures)
	}()

	for {
		select {
		case <-ctx.Done():
			b.drain(frames)
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			b.Process(frame)
		}
	}
}

// Process handles a single frame. It must not be called concurrently with
// itself or Run.
func (b *Batcher) Process(frame remote.DataFrame) {
	b.frames.Add(1)

	if b.latest != nil {
		now := b.now()
		if b.lastFanout.IsZero() || now.Sub(b.lastFanout) > b.cfg.FanoutInterval {
			b.latest.Set(frame)
			b.lastFanout = now
		}
	}

	for _, rec := range frame.Records(b.cfg.Precision, b.tags...) {
		if err := lineproto.Append(&b.buf, rec); err != nil {
			if !errors.Is(err, lineproto.ErrNoFields) {
				log.Printf("telemetry: encoding %s record: %v", rec.Measurement, err)
			}
			continue
		}
		b.buf.WriteByte('\n')
		b.entries++
	}

	if b.entries >= b.cfg.FlushThreshold {
		b.flush()
	}
}

func (b *Batcher) drain(frames <-chan remote.DataFrame) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			b.Process(frame)
		default:
			return
		}
	}
}

// Wait blocks until every flush handed off so far has finished.
func (b *Batcher) Wait() {
	b.inflight.Wait()
}

// Stats returns running totals.
func (b *Batcher) Stats() Stats {
	return Stats{
		Frames:   b.frames.Load(),
		Records:  b.records.Load(),
		Flushes:  b.flushes.Load(),
		Failures: b.failures.Load(),
		Capacity: int(b.capStat.Load()),
	}
}

func (b *Batcher) flush() {
	if b.entries == 0 {
		return
	}

	if n := b.buf.Len(); n > b.capacity {
		b.capacity = n
		b.capStat.Store(int64(n))
		log.Printf("telemetry: grew write buffer capacity to %d bytes", n)
	}

	batch, records := b.buf.String(), b.entries
	b.buf = strings.Builder{}
	b.buf.Grow(b.capacity)
	b.entries = 0

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.write(batch, records)
	}()
}

func (b *Batcher) write(batch string, records int) {
	ctx := context.Background()
	if b.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.WriteTimeout)
		defer cancel()
	}

	if err := b.sink.Write(ctx, batch, records); err != nil {
		b.failures.Add(1)
		log.Print(&SinkWriteError{Records: records, Err: err})
		return
	}
	b.flushes.Add(1)
	b.records.Add(uint64(records))
}
