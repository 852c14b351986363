//go:build linux

package ads101x

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// SMBus talks to the converter through /dev/i2c-<bus>.
type SMBus struct {
	conn *smbus.Conn
	addr uint8
}

// OpenSMBus opens i2c bus number bus and addresses the device at addr.
func OpenSMBus(bus int, addr uint8) (*SMBus, error) {
	conn, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("ads101x: open i2c-%d at 0x%02x: %w", bus, addr, err)
	}
	return &SMBus{conn: conn, addr: addr}, nil
}

func (s *SMBus) ReadWord(reg uint8) (uint16, error) {
	return s.conn.ReadWord(s.addr, reg)
}

func (s *SMBus) WriteWord(reg uint8, value uint16) error {
	return s.conn.WriteWord(s.addr, reg, value)
}

func (s *SMBus) Close() error {
	return s.conn.Close()
}
