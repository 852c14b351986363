package sensor

import (
	"fmt"
	"strings"
	"time"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/itohio/rctrl/pkg/lineproto"
)

// Measurement is the series name of pressure records.
const Measurement = "pressure"

// Unit is a pressure unit.
type Unit uint8

const (
	Bar Unit = iota
	Millibar
	KPa
	PSI
)

var unitNames = [...]string{"bar", "mbar", "kPa", "psi"}

func (u Unit) String() string {
	if int(u) < len(unitNames) {
		return unitNames[u]
	}
	return fmt.Sprintf("invalid(%d)", uint8(u))
}

// ParseUnit parses a unit name, ignoring case.
func ParseUnit(s string) (Unit, error) {
	for i, n := range unitNames {
		if strings.EqualFold(n, s) {
			return Unit(i), nil
		}
	}
	return 0, fmt.Errorf("sensor: unknown pressure unit %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	v, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Pressure is a calibrated pressure reading.
type Pressure struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (p Pressure) String() string {
	return fmt.Sprintf("%g %s", p.Value, p.Unit)
}

// Record returns p as a time-series record. tags precede the unit tag.
func (p Pressure) Record(t time.Time, precision lineproto.Precision, tags ...lineproto.Tag) lineproto.Record {
	return lineproto.Record{
		Measurement: Measurement,
		Tags:        append(tags[:len(tags):len(tags)], lineproto.Tag{Key: "unit", Value: p.Unit.String()}),
		Fields:      []lineproto.Field{{Key: "pressure", Value: lineproto.Float(p.Value)}},
		Time:        t,
		Precision:   precision,
	}
}

// KellerPA7LC is a Keller PA-7LC piezoresistive transmitter with a linear
// voltage output. The zero value reports the voltage as bar.
type KellerPA7LC struct {
	Offset float64 // Output voltage at zero pressure (V)
	Scale  float64 // Pressure units per volt, 0 means 1
	Unit   Unit
	R1, R2 float64 // Optional divider in front of the converter
}

// NewKellerPA7LC builds a transmitter model from its calibration.
func NewKellerPA7LC(cfg config.SensorConfig) (KellerPA7LC, error) {
	unit, err := ParseUnit(cfg.Unit)
	if err != nil {
		return KellerPA7LC{}, err
	}
	return KellerPA7LC{
		Offset: cfg.Offset,
		Scale:  cfg.Scale,
		Unit:   unit,
		R1:     cfg.VoltageDivider.R1,
		R2:     cfg.VoltageDivider.R2,
	}, nil
}

// Convert applies the transfer function (V - Offset) * Scale.
func (k KellerPA7LC) Convert(voltage float64) Pressure {
	scale := k.Scale
	if scale == 0 {
		scale = 1
	}
	v := VoltageDivider(voltage, k.R1, k.R2)
	return Pressure{Value: (v - k.Offset) * scale, Unit: k.Unit}
}
