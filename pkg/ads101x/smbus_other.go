//go:build !linux

package ads101x

// SMBus is only available on Linux.
type SMBus struct{}

// OpenSMBus returns ErrUnsupported on this platform.
func OpenSMBus(bus int, addr uint8) (*SMBus, error) {
	return nil, ErrUnsupported
}

func (s *SMBus) ReadWord(reg uint8) (uint16, error)     { return 0, ErrUnsupported }
func (s *SMBus) WriteWord(reg uint8, value uint16) error { return ErrUnsupported }
func (s *SMBus) Close() error                            { return nil }
