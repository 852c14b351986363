package ads101x

import (
	"errors"
	"fmt"

	"github.com/itohio/rctrl/pkg/config"
)

// Transport performs 16-bit register transfers with the converter. Words are in
// SMBus order: the first byte on the wire is the least significant byte. The
// converter sends its registers most significant byte first, so every word is
// byte-swapped relative to the register value.
type Transport interface {
	ReadWord(reg uint8) (uint16, error)
	WriteWord(reg uint8, value uint16) error
	Close() error
}

// ErrUnsupported is returned when a transport is not available on this platform.
var ErrUnsupported = errors.New("ads101x: transport not supported on this platform")

// TransportError wraps a register I/O failure.
type TransportError struct {
	Op  string
	Reg uint8
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ads101x: %s register 0x%02x: %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Dial opens the transport selected by cfg.
func Dial(cfg config.ADCConfig) (Transport, error) {
	switch cfg.Transport {
	case config.TransportI2C:
		tr, err := OpenSMBus(cfg.I2C.Bus, cfg.I2C.Address)
		if err != nil {
			return nil, err
		}
		return tr, nil
	case config.TransportModbus:
		tr, err := OpenModbus(cfg.Modbus)
		if err != nil {
			return nil, err
		}
		return tr, nil
	case config.TransportMock:
		return NewMock(&cfg.Mock), nil
	default:
		return nil, fmt.Errorf("ads101x: unknown transport %q", cfg.Transport)
	}
}
