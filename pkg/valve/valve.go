// Package valve drives the instrument's valve actuator.
package valve

import (
	"fmt"

	"github.com/itohio/rctrl/pkg/config"
)

// Actuator opens and closes the valve.
type Actuator interface {
	Set(open bool) error
	Close() error
}

// Ensure Serial implements Actuator.
var _ Actuator = (*Serial)(nil)

// Ensure Mock implements Actuator.
var _ Actuator = (*Mock)(nil)

// Open constructs and connects the actuator selected by cfg.
func Open(cfg config.ValveConfig) (Actuator, error) {
	switch cfg.Driver {
	case config.ValveSerial:
		s := NewSerial(cfg.Port, cfg.BaudRate)
		if err := s.Connect(); err != nil {
			return nil, err
		}
		return s, nil
	case config.ValveMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("valve: unknown driver %q", cfg.Driver)
	}
}
