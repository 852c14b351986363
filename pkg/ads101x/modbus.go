package ads101x

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goburrow/modbus"

	"github.com/itohio/rctrl/pkg/config"
)

// registerClient is the subset of modbus.Client used here.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

// Modbus reaches the converter through a Modbus TCP gateway that mirrors the
// device registers as holding registers starting at a base address.
type Modbus struct {
	mu     sync.Mutex
	closer io.Closer
	client registerClient
	base   uint16
}

// OpenModbus connects to the gateway described by cfg.
func OpenModbus(cfg config.ModbusConfig) (*Modbus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("ads101x: modbus endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("ads101x: connect %s: %w", cfg.Endpoint, err)
	}

	return &Modbus{
		closer: h,
		client: modbus.NewClient(h),
		base:   cfg.BaseRegister,
	}, nil
}

// ReadWord reads one holding register. Modbus registers are big-endian on the
// wire, so the bytes are reordered into SMBus word order.
func (m *Modbus) ReadWord(reg uint8) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.client.ReadHoldingRegisters(m.base+uint16(reg), 1)
	if err != nil {
		return 0, err
	}
	if len(b) != 2 {
		return 0, fmt.Errorf("ads101x: modbus returned %d bytes for one register", len(b))
	}
	return uint16(b[1])<<8 | uint16(b[0]), nil
}

// WriteWord writes one holding register.
func (m *Modbus) WriteWord(reg uint8, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	register := value<<8 | value>>8
	_, err := m.client.WriteSingleRegister(m.base+uint16(reg), register)
	return err
}

func (m *Modbus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}
