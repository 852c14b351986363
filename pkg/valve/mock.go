package valve

import (
	"fmt"
	"sync"
)

// Mock simulates the valve for testing and development.
type Mock struct {
	mu     sync.Mutex
	open   bool
	sets   int
	fault  error
	closed bool
}

// NewMock creates a closed simulated valve.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Set(open bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("not connected")
	}
	if m.fault != nil {
		return m.fault
	}

	m.open = open
	m.sets++
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// State returns whether the simulated valve is open and how many commands it applied.
func (m *Mock) State() (open bool, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open, m.sets
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetFault makes every following Set fail with err. A nil err clears the fault.
func (m *Mock) SetFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = err
}
