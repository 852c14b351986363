package ads101x

import (
	"fmt"
	"log"
	"math/bits"

	"github.com/itohio/rctrl/pkg/sensor"
)

// ConfigMismatch reports a config register that did not read back as written.
// Variants that do not implement a field ignore writes to it.
type ConfigMismatch struct {
	Want uint16
	Got  uint16
}

func (m *ConfigMismatch) Error() string {
	return fmt.Sprintf("ads101x: config mismatch: wrote 0x%04x (%s), read back 0x%04x (%s)",
		m.Want, DecodeConfig(m.Want), m.Got, DecodeConfig(m.Got))
}

// Adapter owns one converter transport. It is not safe for concurrent use.
type Adapter struct {
	tr  Transport
	cfg ConfigWord
}

// New reads the config register through tr to initialize the adapter.
func New(tr Transport) (*Adapter, error) {
	a := &Adapter{tr: tr}

	word, err := a.readConfig()
	if err != nil {
		return nil, err
	}
	a.cfg = DecodeConfig(word)

	return a, nil
}

// Config returns the configuration last read back from the device.
func (a *Adapter) Config() ConfigWord {
	return a.cfg
}

// Configure writes cfg and reads it back. A read back that differs is logged
// and the adapter continues with what the device reports.
func (a *Adapter) Configure(cfg ConfigWord) error {
	want := EncodeConfig(cfg)
	if err := a.tr.WriteWord(RegConfig, bits.ReverseBytes16(want)); err != nil {
		return &TransportError{Op: "write", Reg: RegConfig, Err: err}
	}

	got, err := a.readConfig()
	if err != nil {
		return err
	}

	// OS means "start conversion" when written and "idle" when read.
	if got&^osMask != want&^osMask {
		log.Printf("%v", &ConfigMismatch{Want: want, Got: got})
	}
	a.cfg = DecodeConfig(got)

	return nil
}

// ReadRaw reads the conversion register and scales it by the active gain.
func (a *Adapter) ReadRaw() (float64, error) {
	word, err := a.tr.ReadWord(RegConversion)
	if err != nil {
		return 0, &TransportError{Op: "read", Reg: RegConversion, Err: err}
	}
	return float64(DecodeRawSample(word)) * LSBSize(a.cfg.Gain), nil
}

// Close releases the transport.
func (a *Adapter) Close() error {
	return a.tr.Close()
}

func (a *Adapter) readConfig() (uint16, error) {
	word, err := a.tr.ReadWord(RegConfig)
	if err != nil {
		return 0, &TransportError{Op: "read", Reg: RegConfig, Err: err}
	}
	return bits.ReverseBytes16(word), nil
}

// Read samples the converter and passes the voltage through s.
func Read[T any](a *Adapter, s sensor.Sensor[T]) (T, error) {
	v, err := a.ReadRaw()
	if err != nil {
		var zero T
		return zero, err
	}
	return s.Convert(v), nil
}
