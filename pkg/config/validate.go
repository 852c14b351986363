package config

import (
	"fmt"
	"net"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
// Enumerated register and unit names are checked by the packages that parse them.
func Validate(cfg *Config) error {
	switch cfg.ADC.Transport {
	case TransportI2C:
		if cfg.ADC.I2C.Bus < 0 {
			return fmt.Errorf("adc.i2c.bus must not be negative, got %d", cfg.ADC.I2C.Bus)
		}
		if cfg.ADC.I2C.Address > 0x7F {
			return fmt.Errorf("adc.i2c.address 0x%02x is not a 7-bit address", cfg.ADC.I2C.Address)
		}
	case TransportModbus:
		if _, _, err := net.SplitHostPort(cfg.ADC.Modbus.Endpoint); err != nil {
			return fmt.Errorf("adc.modbus.endpoint %q: %w", cfg.ADC.Modbus.Endpoint, err)
		}
		if cfg.ADC.Modbus.Timeout <= 0 {
			return fmt.Errorf("adc.modbus.timeout must be positive")
		}
	case TransportMock:
		if cfg.ADC.Mock.Period <= 0 {
			return fmt.Errorf("adc.mock.period must be positive")
		}
	default:
		return fmt.Errorf("unknown adc.transport %q", cfg.ADC.Transport)
	}

	if cfg.Sensor.Scale == 0 {
		return fmt.Errorf("sensor.scale must not be zero")
	}

	if cfg.Loop.Period <= 0 {
		return fmt.Errorf("loop.period must be positive")
	}

	if cfg.Bridge.FrameBuffer < 1 {
		return fmt.Errorf("bridge.frame_buffer must be at least 1, got %d", cfg.Bridge.FrameBuffer)
	}
	if cfg.Bridge.CommandBuffer < 1 {
		return fmt.Errorf("bridge.command_buffer must be at least 1, got %d", cfg.Bridge.CommandBuffer)
	}

	if _, _, err := net.SplitHostPort(cfg.Server.Address); err != nil {
		return fmt.Errorf("server.address %q: %w", cfg.Server.Address, err)
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	switch cfg.Telemetry.Sink {
	case SinkInflux:
		if cfg.Influx.URL == "" || cfg.Influx.Org == "" || cfg.Influx.Bucket == "" {
			return fmt.Errorf("influx sink requires url, org and bucket")
		}
	case SinkStdout, SinkDiscard:
	default:
		return fmt.Errorf("unknown telemetry.sink %q", cfg.Telemetry.Sink)
	}
	if cfg.Telemetry.FlushThreshold < 1 {
		return fmt.Errorf("telemetry.flush_threshold must be at least 1, got %d", cfg.Telemetry.FlushThreshold)
	}
	if cfg.Telemetry.InitialCapacity < 1 {
		return fmt.Errorf("telemetry.initial_capacity must be at least 1, got %d", cfg.Telemetry.InitialCapacity)
	}
	if cfg.Telemetry.FanoutInterval < 0 {
		return fmt.Errorf("telemetry.fanout_interval must not be negative")
	}

	switch cfg.Valve.Driver {
	case ValveSerial:
		if cfg.Valve.Port == "" {
			return fmt.Errorf("valve.port is required for the serial driver")
		}
	case ValveMock:
	default:
		return fmt.Errorf("unknown valve.driver %q", cfg.Valve.Driver)
	}

	return nil
}
