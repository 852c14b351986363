// Package remote defines the messages exchanged with remote clients.
package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/itohio/rctrl/pkg/lineproto"
	"github.com/itohio/rctrl/pkg/sensor"
)

// Command is a valve directive sent by a client.
type Command uint32

const (
	ValveOpen Command = iota
	ValveClose

	numCommands
)

var commandNames = [...]string{"valve_open", "valve_close"}

func (c Command) String() string {
	if c < numCommands {
		return commandNames[c]
	}
	return fmt.Sprintf("invalid(%d)", uint32(c))
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return c < numCommands
}

// ParseCommand parses "valve_open" or "valve_close". "open" and "close" are accepted too.
func ParseCommand(s string) (Command, error) {
	s = strings.ToLower(s)
	for i, n := range commandNames {
		if s == n || "valve_"+s == n {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("remote: unknown command %q", s)
}

// DataFrame is the state snapshot produced by one control loop tick.
type DataFrame struct {
	Time    time.Time        `json:"time"`
	Sensor  *sensor.Pressure `json:"sensor,omitempty"`
	Valve   *bool            `json:"valve,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Records returns the time-series records derived from f. Only the sensor
// reading is recorded; valve state and messages are not.
func (f DataFrame) Records(precision lineproto.Precision, tags ...lineproto.Tag) []lineproto.Record {
	if f.Sensor == nil {
		return nil
	}
	return []lineproto.Record{f.Sensor.Record(f.Time, precision, tags...)}
}
