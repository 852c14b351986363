package valve

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the valve relay board.
const DefaultBaudRate = 115200

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Serial drives a relay board that accepts "1\n" (open) and "0\n" (close).
type Serial struct {
	port     string
	baudRate int

	mu        sync.Mutex
	conn      io.WriteCloser
	connected bool
}

// NewSerial creates a valve actuator on the given port.
func NewSerial(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &Serial{
		port:     port,
		baudRate: baudRate,
	}
}

// Connect opens the serial port.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(s.port, &serial.Mode{
		BaudRate: s.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true

	return nil
}

// Set sends the valve state to the relay board.
func (s *Serial) Set(open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return fmt.Errorf("not connected")
	}

	cmd := []byte("0\n")
	if open {
		cmd[0] = '1'
	}

	if _, err := s.conn.Write(cmd); err != nil {
		return fmt.Errorf("failed to send valve command: %w", err)
	}

	return nil
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.connected = false
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.port, err)
	}

	return nil
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
