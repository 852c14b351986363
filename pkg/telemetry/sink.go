package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/itohio/rctrl/pkg/lineproto"
)

// Sink receives batches of newline separated line protocol records.
type Sink interface {
	Write(ctx context.Context, batch string, records int) error
	Close() error
}

var (
	_ Sink = (*InfluxSink)(nil)
	_ Sink = (*WriterSink)(nil)
	_ Sink = Discard{}
)

// SinkWriteError is a batch the sink rejected. The batch is not retried.
type SinkWriteError struct {
	Records int
	Err     error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("telemetry: writing %d records: %v", e.Records, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// InfluxSink writes batches to an InfluxDB v2 bucket.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

// NewInfluxSink creates a client for cfg. Records must carry timestamps in
// the given precision.
func NewInfluxSink(cfg config.InfluxConfig, precision lineproto.Precision) *InfluxSink {
	opts := influxdb2.DefaultOptions().SetPrecision(precision.Duration())
	if secs := uint(cfg.Timeout.Seconds()); secs > 0 {
		opts.SetHTTPRequestTimeout(secs)
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &InfluxSink{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (s *InfluxSink) Write(ctx context.Context, batch string, records int) error {
	return s.write.WriteRecord(ctx, batch)
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// WriterSink copies batches to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(ctx context.Context, batch string, records int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, batch)
	return err
}

// Close leaves the underlying writer open.
func (s *WriterSink) Close() error { return nil }

// Discard drops every batch.
type Discard struct{}

func (Discard) Write(context.Context, string, int) error { return nil }
func (Discard) Close() error                             { return nil }

// NewSink builds the sink selected by cfg.Telemetry.Sink.
func NewSink(cfg *config.Config, precision lineproto.Precision) (Sink, error) {
	switch cfg.Telemetry.Sink {
	case config.SinkInflux:
		return NewInfluxSink(cfg.Influx, precision), nil
	case config.SinkStdout:
		return NewWriterSink(os.Stdout), nil
	case config.SinkDiscard:
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("telemetry: unknown sink %q", cfg.Telemetry.Sink)
	}
}
