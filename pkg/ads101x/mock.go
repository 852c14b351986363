package ads101x

import (
	"errors"
	"math"
	"math/bits"
	"strings"
	"sync"
	"time"

	"github.com/itohio/rctrl/pkg/config"
)

// Variant identifies a member of the ADS101x family.
type Variant uint8

const (
	ADS1015 Variant = iota
	ADS1014
	ADS1013
)

// ParseVariant parses "ads1013", "ads1014" or "ads1015". Unknown names yield ADS1015.
func ParseVariant(s string) Variant {
	switch strings.ToLower(s) {
	case "ads1013":
		return ADS1013
	case "ads1014":
		return ADS1014
	default:
		return ADS1015
	}
}

// writableMask returns the config bits the variant implements.
func (v Variant) writableMask() uint16 {
	switch v {
	case ADS1013:
		return osMask | modeMask | dataRateMask
	case ADS1014:
		return 0xFFFF &^ muxMask
	default:
		return 0xFFFF
	}
}

var errMockClosed = errors.New("mock transport closed")

// Mock simulates the converter register map for testing and development.
// Registers hold big-endian register values; ReadWord and WriteWord swap
// bytes the way an SMBus word transfer does.
type Mock struct {
	cfg     *config.MockConfig
	variant Variant

	mu        sync.Mutex
	regs      [4]uint16
	startTime time.Time
	pinned    *float64
	fault     error
	closed    bool
}

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)

// NewMock creates a simulated converter in its power-on state.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Variant:    "ads1015",
			Bias:       0.5,
			Amplitude:  0.25,
			Period:     10 * time.Second,
			NoiseLevel: 0.002,
		}
	}

	m := &Mock{
		cfg:       cfg,
		variant:   ParseVariant(cfg.Variant),
		startTime: time.Now(),
	}
	m.regs[RegConfig] = EncodeConfig(DefaultConfig())
	m.regs[RegLoThresh] = 0x8000
	m.regs[RegHiThresh] = 0x7FF0
	return m
}

// SetVoltage pins the simulated input voltage. The waveform resumes after ClearVoltage.
func (m *Mock) SetVoltage(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned = &v
}

// ClearVoltage releases a voltage pinned by SetVoltage.
func (m *Mock) ClearVoltage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned = nil
}

// SetFault makes every following transfer fail with err. A nil err clears the fault.
func (m *Mock) SetFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = err
}

// Register returns the register value as the device holds it.
func (m *Mock) Register(reg uint8) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg&0x03]
}

func (m *Mock) ReadWord(reg uint8) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(); err != nil {
		return 0, err
	}

	reg &= 0x03
	if reg == RegConversion {
		return m.convert(), nil
	}

	value := m.regs[reg]
	if reg == RegConfig {
		// OS reads back as 1 while the device is idle.
		value |= osMask
	}
	return bits.ReverseBytes16(value), nil
}

func (m *Mock) WriteWord(reg uint8, word uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(); err != nil {
		return err
	}

	value := bits.ReverseBytes16(word)
	switch reg & 0x03 {
	case RegConversion:
		// read-only
	case RegConfig:
		mask := m.variant.writableMask()
		m.regs[RegConfig] = m.regs[RegConfig]&^mask | value&mask
	default:
		m.regs[reg&0x03] = value
	}
	return nil
}

// Close marks the transport closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Mock) check() error {
	if m.closed {
		return errMockClosed
	}
	return m.fault
}

// convert produces a conversion word for the current input at the configured gain.
func (m *Mock) convert() uint16 {
	gain := DecodeConfig(m.regs[RegConfig]).Gain

	var v float64
	if m.pinned != nil {
		v = *m.pinned
	} else {
		elapsed := time.Since(m.startTime)
		v = m.cfg.Bias
		if m.cfg.Period > 0 {
			v += m.cfg.Amplitude * math.Sin(2*math.Pi*elapsed.Seconds()/m.cfg.Period.Seconds())
		}
		v += (math.Sin(float64(elapsed.Nanoseconds())*0.001) +
			math.Cos(float64(elapsed.Nanoseconds())*0.0013)) *
			m.cfg.NoiseLevel * 0.5
	}

	counts := math.Round(v / LSBSize(gain))
	counts = math.Max(-2048, math.Min(2047, counts))
	word := EncodeRawSample(int16(counts))
	m.regs[RegConversion] = bits.ReverseBytes16(word)
	return word
}
