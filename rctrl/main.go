package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"github.com/itohio/rctrl/pkg/ads101x"
	"github.com/itohio/rctrl/pkg/bridge"
	"github.com/itohio/rctrl/pkg/config"
	"github.com/itohio/rctrl/pkg/control"
	"github.com/itohio/rctrl/pkg/lineproto"
	"github.com/itohio/rctrl/pkg/sensor"
	"github.com/itohio/rctrl/pkg/server"
	"github.com/itohio/rctrl/pkg/telemetry"
	"github.com/itohio/rctrl/pkg/valve"
)

func main() {
	var (
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag      = flag.Bool("mock", false, "Use the simulated converter and valve, print telemetry to stdout")
		addrFlag      = flag.String("addr", "", "Listen address override (e.g., 0.0.0.0:9090)")
		listPortsFlag = flag.Bool("list-ports", false, "List serial ports and exit")
	)
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *listPortsFlag {
		if err := listPorts(); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyOverrides(cfg, *addrFlag, *mockFlag)

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	startup, err := ads101x.ParseConfig(cfg.ADC.Registers)
	if err != nil {
		log.Fatalf("Invalid converter registers: %v", err)
	}
	conv, err := sensor.NewKellerPA7LC(cfg.Sensor)
	if err != nil {
		log.Fatalf("Invalid sensor calibration: %v", err)
	}
	precision, err := lineproto.ParsePrecision(cfg.Telemetry.Precision)
	if err != nil {
		log.Fatalf("Invalid telemetry precision: %v", err)
	}
	sink, err := telemetry.NewSink(cfg, precision)
	if err != nil {
		log.Fatalf("Failed to create telemetry sink: %v", err)
	}
	defer sink.Close()

	shutdown := bridge.NewShutdown()
	b := bridge.New(cfg.Bridge, shutdown)

	ctl, err := openHardware(cfg, startup, conv, b)
	if err != nil {
		log.Fatal(err)
	}

	// Control loop on its own goroutine; it locks its OS thread.
	controlDone := make(chan error, 1)
	go func() {
		controlDone <- ctl.Run(shutdown.Done())
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigc {
			if shutdown.Triggered() {
				log.Printf("Received %v again, exiting without cleanup", sig)
				os.Exit(2)
			}
			log.Printf("Received %v, shutting down", sig)
			shutdown.Trigger()
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg.Server, b.Latest, b.Commands)

	batcher := telemetry.New(telemetry.Config{
		FlushThreshold:  cfg.Telemetry.FlushThreshold,
		FanoutInterval:  cfg.Telemetry.FanoutInterval,
		InitialCapacity: cfg.Telemetry.InitialCapacity,
		Precision:       precision,
		WriteTimeout:    cfg.Influx.Timeout,
	}, sink, b.Latest, sensorTags(cfg.Sensor))

	log.Printf("rctrl running: converter=%s valve=%s sink=%s addr=%s",
		cfg.ADC.Transport, cfg.Valve.Driver, cfg.Telemetry.Sink, cfg.Server.Address)

	err = b.Run(
		bridge.Task{Name: "server", Run: srv.ListenAndServe},
		bridge.Task{Name: "telemetry", Run: func(ctx context.Context) error {
			return batcher.Run(ctx, b.Frames)
		}},
	)

	// The process must not exit before the loop has released the hardware.
	err = multierr.Append(err, <-controlDone)
	if err != nil {
		log.Printf("Stopped with errors: %v", err)
		os.Exit(1)
	}
	log.Printf("Stopped")
}

func applyOverrides(cfg *config.Config, addr string, mock bool) {
	if addr != "" {
		cfg.Server.Address = addr
	}

	// Environment variables override command line flags
	if env := os.Getenv("RCTRL_ADDR"); env != "" {
		cfg.Server.Address = env
	}
	if env := os.Getenv("RCTRL_INFLUX_URL"); env != "" {
		cfg.Influx.URL = env
	}
	if env := os.Getenv("RCTRL_INFLUX_TOKEN"); env != "" {
		cfg.Influx.Token = env
	}

	if mock {
		cfg.ADC.Transport = config.TransportMock
		cfg.Valve.Driver = config.ValveMock
		cfg.Telemetry.Sink = config.SinkStdout
	}
}

func openHardware(cfg *config.Config, startup ads101x.ConfigWord, conv sensor.KellerPA7LC, b *bridge.Bridge) (*control.Context, error) {
	tr, err := ads101x.Dial(cfg.ADC)
	if err != nil {
		return nil, &control.InitializationError{Err: err}
	}

	act, err := valve.Open(cfg.Valve)
	if err != nil {
		return nil, &control.InitializationError{Err: multierr.Append(err, tr.Close())}
	}

	ctl, err := control.New(control.Config{
		Period:  cfg.Loop.Period,
		Startup: startup,
	}, tr, conv, act, b.Commands, b.Frames)
	if err != nil {
		return nil, multierr.Append(err, act.Close())
	}
	return ctl, nil
}

func sensorTags(cfg config.SensorConfig) []lineproto.Tag {
	var tags []lineproto.Tag
	if cfg.ID != "" {
		tags = append(tags, lineproto.Tag{Key: "sensor", Value: cfg.ID})
	}
	if cfg.Location != "" {
		tags = append(tags, lineproto.Tag{Key: "location", Value: cfg.Location})
	}
	return tags
}

func listPorts() error {
	ports, err := valve.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
	return nil
}
