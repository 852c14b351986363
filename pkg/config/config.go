package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport kinds for the ADC register transport.
const (
	TransportI2C    = "i2c"
	TransportModbus = "modbus"
	TransportMock   = "mock"
)

// Valve drivers.
const (
	ValveSerial = "serial"
	ValveMock   = "mock"
)

// Telemetry sinks.
const (
	SinkInflux  = "influx"
	SinkStdout  = "stdout"
	SinkDiscard = "discard"
)

// Config represents the application configuration.
type Config struct {
	ADC       ADCConfig       `yaml:"adc"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Loop      LoopConfig      `yaml:"loop"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Influx    InfluxConfig    `yaml:"influx"`
	Valve     ValveConfig     `yaml:"valve"`
}

// ADCConfig selects the register transport and the startup register configuration.
type ADCConfig struct {
	Transport string         `yaml:"transport"` // i2c, modbus or mock
	I2C       I2CConfig      `yaml:"i2c"`
	Modbus    ModbusConfig   `yaml:"modbus"`
	Mock      MockConfig     `yaml:"mock"`
	Registers RegisterConfig `yaml:"registers"`
}

// I2CConfig addresses the converter on a Linux i2c-dev bus.
type I2CConfig struct {
	Bus     int   `yaml:"bus"`     // /dev/i2c-<bus>
	Address uint8 `yaml:"address"` // 7-bit device address
}

// ModbusConfig describes a Modbus TCP gateway mirroring the converter registers.
type ModbusConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	UnitID       uint8         `yaml:"unit_id"`
	Timeout      time.Duration `yaml:"timeout"`
	BaseRegister uint16        `yaml:"base_register"`
}

// MockConfig contains simulated converter configuration.
type MockConfig struct {
	Variant    string        `yaml:"variant"`     // ads1013, ads1014 or ads1015
	Bias       float64       `yaml:"bias"`        // Bias voltage (V)
	Amplitude  float64       `yaml:"amplitude"`   // Sine amplitude (V)
	Period     time.Duration `yaml:"period"`      // Sine period
	NoiseLevel float64       `yaml:"noise_level"` // Noise level (V)
}

// RegisterConfig is the startup configuration written to the converter.
// Values use the names printed by the ads101x enums.
type RegisterConfig struct {
	Mux          string `yaml:"mux"`
	Gain         string `yaml:"gain"`
	Mode         string `yaml:"mode"`
	DataRate     string `yaml:"data_rate"`
	CompMode     string `yaml:"comp_mode"`
	CompPolarity string `yaml:"comp_polarity"`
	CompLatch    string `yaml:"comp_latch"`
	CompQueue    string `yaml:"comp_queue"`
}

// SensorConfig contains the calibration of the pressure transducer.
type SensorConfig struct {
	ID       string  `yaml:"id"`
	Location string  `yaml:"location"`
	Unit     string  `yaml:"unit"`
	Offset   float64 `yaml:"offset"` // Voltage at zero pressure (V)
	Scale    float64 `yaml:"scale"`  // Pressure units per volt

	VoltageDivider VoltageDividerConfig `yaml:"voltage_divider"`
}

// VoltageDividerConfig describes a resistive divider between the transducer
// output and the converter input. A zero R2 means no divider.
type VoltageDividerConfig struct {
	R1 float64 `yaml:"r1"`
	R2 float64 `yaml:"r2"`
}

// LoopConfig contains real-time loop parameters.
type LoopConfig struct {
	Period time.Duration `yaml:"period"`
}

// BridgeConfig contains the bounds of the cross-domain channels.
type BridgeConfig struct {
	FrameBuffer   int `yaml:"frame_buffer"`
	CommandBuffer int `yaml:"command_buffer"`
}

// ServerConfig contains network service parameters.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORS         bool          `yaml:"cors"`
}

// TelemetryConfig contains batching parameters.
type TelemetryConfig struct {
	Sink            string        `yaml:"sink"` // influx, stdout or discard
	FlushThreshold  int           `yaml:"flush_threshold"`
	FanoutInterval  time.Duration `yaml:"fanout_interval"`
	InitialCapacity int           `yaml:"initial_capacity"` // Bytes
	Precision       string        `yaml:"precision"`        // ns, us, ms or s
}

// InfluxConfig contains time-series database connection parameters.
type InfluxConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Org     string        `yaml:"org"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// ValveConfig selects the valve actuator.
type ValveConfig struct {
	Driver   string `yaml:"driver"` // serial or mock
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		ADC: ADCConfig{
			Transport: TransportI2C,
			I2C: I2CConfig{
				Bus:     1,
				Address: 0x48,
			},
			Modbus: ModbusConfig{
				Endpoint: "127.0.0.1:502",
				UnitID:   1,
				Timeout:  time.Second,
			},
			Mock: MockConfig{
				Variant:    "ads1015",
				Bias:       0.5,
				Amplitude:  0.25,
				Period:     10 * time.Second,
				NoiseLevel: 0.002,
			},
			Registers: RegisterConfig{
				Mux:          "ain0_ain1",
				Gain:         "2.048V",
				Mode:         "continuous",
				DataRate:     "1600",
				CompMode:     "traditional",
				CompPolarity: "active_low",
				CompLatch:    "nonlatching",
				CompQueue:    "disable",
			},
		},
		Sensor: SensorConfig{
			ID:       "pa7lc",
			Location: "manifold",
			Unit:     "bar",
			Offset:   0,
			Scale:    1,
		},
		Loop: LoopConfig{
			Period: 50 * time.Millisecond,
		},
		Bridge: BridgeConfig{
			FrameBuffer:   16,
			CommandBuffer: 16,
		},
		Server: ServerConfig{
			Address:      "127.0.0.1:9090",
			WriteTimeout: time.Second,
			CORS:         true,
		},
		Telemetry: TelemetryConfig{
			Sink:            SinkInflux,
			FlushThreshold:  50,
			FanoutInterval:  15 * time.Millisecond,
			InitialCapacity: 20,
			Precision:       "ms",
		},
		Influx: InfluxConfig{
			URL:     "http://localhost:8086",
			Org:     "rctrl",
			Bucket:  "rctrl",
			Timeout: 5 * time.Second,
		},
		Valve: ValveConfig{
			Driver:   ValveMock,
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.ADC.Transport == "" {
		c.ADC.Transport = def.ADC.Transport
	}
	if c.ADC.I2C.Address == 0 {
		c.ADC.I2C.Address = def.ADC.I2C.Address
	}
	if c.ADC.Modbus.Endpoint == "" {
		c.ADC.Modbus.Endpoint = def.ADC.Modbus.Endpoint
	}
	if c.ADC.Modbus.Timeout == 0 {
		c.ADC.Modbus.Timeout = def.ADC.Modbus.Timeout
	}
	if c.ADC.Mock.Variant == "" {
		c.ADC.Mock.Variant = def.ADC.Mock.Variant
	}
	if c.ADC.Mock.Period == 0 {
		c.ADC.Mock.Period = def.ADC.Mock.Period
	}
	c.ADC.Registers.fill(def.ADC.Registers)

	if c.Sensor.ID == "" {
		c.Sensor.ID = def.Sensor.ID
	}
	if c.Sensor.Unit == "" {
		c.Sensor.Unit = def.Sensor.Unit
	}
	if c.Sensor.Scale == 0 {
		c.Sensor.Scale = def.Sensor.Scale
	}

	if c.Loop.Period == 0 {
		c.Loop.Period = def.Loop.Period
	}

	if c.Bridge.FrameBuffer == 0 {
		c.Bridge.FrameBuffer = def.Bridge.FrameBuffer
	}
	if c.Bridge.CommandBuffer == 0 {
		c.Bridge.CommandBuffer = def.Bridge.CommandBuffer
	}

	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}

	if c.Telemetry.Sink == "" {
		c.Telemetry.Sink = def.Telemetry.Sink
	}
	if c.Telemetry.FlushThreshold == 0 {
		c.Telemetry.FlushThreshold = def.Telemetry.FlushThreshold
	}
	if c.Telemetry.FanoutInterval == 0 {
		c.Telemetry.FanoutInterval = def.Telemetry.FanoutInterval
	}
	if c.Telemetry.InitialCapacity == 0 {
		c.Telemetry.InitialCapacity = def.Telemetry.InitialCapacity
	}
	if c.Telemetry.Precision == "" {
		c.Telemetry.Precision = def.Telemetry.Precision
	}

	if c.Influx.URL == "" {
		c.Influx.URL = def.Influx.URL
	}
	if c.Influx.Timeout == 0 {
		c.Influx.Timeout = def.Influx.Timeout
	}

	if c.Valve.Driver == "" {
		c.Valve.Driver = def.Valve.Driver
	}
	if c.Valve.BaudRate == 0 {
		c.Valve.BaudRate = def.Valve.BaudRate
	}
}

func (r *RegisterConfig) fill(def RegisterConfig) {
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&r.Mux, def.Mux)
	set(&r.Gain, def.Gain)
	set(&r.Mode, def.Mode)
	set(&r.DataRate, def.DataRate)
	set(&r.CompMode, def.CompMode)
	set(&r.CompPolarity, def.CompPolarity)
	set(&r.CompLatch, def.CompLatch)
	set(&r.CompQueue, def.CompQueue)
}
