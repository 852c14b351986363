// Package sensor maps converter voltages to calibrated readings.
package sensor

// Sensor converts a voltage into a reading of type T. Implementations are pure:
// out-of-range or NaN input is passed through for the caller to judge.
type Sensor[T any] interface {
	Convert(voltage float64) T
}

// Func adapts a plain function to Sensor.
type Func[T any] func(voltage float64) T

func (f Func[T]) Convert(voltage float64) T { return f(voltage) }

// Volts reports the input voltage unchanged.
type Volts struct{}

func (Volts) Convert(voltage float64) float64 { return voltage }

// VoltageDivider calculates the input voltage from the measured output voltage.
// Formula: V_in = V_out * ((R1 + R2) / R2). A zero r2 means no divider.
func VoltageDivider(vout float64, r1, r2 float64) float64 {
	if r2 == 0 {
		return vout
	}
	return vout * ((r1 + r2) / r2)
}

var (
	_ Sensor[float64]  = Volts{}
	_ Sensor[Pressure] = KellerPA7LC{}
)
