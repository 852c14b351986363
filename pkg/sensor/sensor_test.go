package sensor

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/itohio/rctrl/pkg/lineproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoltageDivider(t *testing.T) {
	tests := []struct {
		name string
		vout float64
		r1   float64
		r2   float64
		want float64
	}{
		{
			name: "equal resistors",
			vout: 1.65,
			r1:   20000,
			r2:   20000,
			want: 3.3,
		},
		{
			name: "unequal resistors",
			vout: 1.0,
			r1:   30000,
			r2:   10000,
			want: 4.0,
		},
		{
			name: "no divider",
			vout: 2.5,
			want: 2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, VoltageDivider(tt.vout, tt.r1, tt.r2), 1e-9)
		})
	}
}

func TestKellerPA7LC_Convert(t *testing.T) {
	tests := []struct {
		name    string
		sensor  KellerPA7LC
		voltage float64
		want    Pressure
	}{
		{
			name:    "zero value passes voltage through as bar",
			sensor:  KellerPA7LC{},
			voltage: 1.234,
			want:    Pressure{Value: 1.234, Unit: Bar},
		},
		{
			name:    "zero volts zero offset",
			sensor:  KellerPA7LC{Scale: 2.5},
			voltage: 0,
			want:    Pressure{Value: 0, Unit: Bar},
		},
		{
			name:    "offset and scale",
			sensor:  KellerPA7LC{Offset: 0.5, Scale: 2.5, Unit: Bar},
			voltage: 4.5,
			want:    Pressure{Value: 10, Unit: Bar},
		},
		{
			name:    "below offset goes negative",
			sensor:  KellerPA7LC{Offset: 0.5, Scale: 1000, Unit: Millibar},
			voltage: 0.4,
			want:    Pressure{Value: -100, Unit: Millibar},
		},
		{
			name:    "through divider",
			sensor:  KellerPA7LC{Scale: 1, R1: 10000, R2: 10000},
			voltage: 2,
			want:    Pressure{Value: 4, Unit: Bar},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sensor.Convert(tt.voltage)
			assert.Equal(t, tt.want.Unit, got.Unit)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
		})
	}
}

func TestKellerPA7LC_PassesNaN(t *testing.T) {
	got := KellerPA7LC{Scale: 2}.Convert(math.NaN())
	assert.True(t, math.IsNaN(got.Value))
}

func TestNewKellerPA7LC(t *testing.T) {
	s, err := NewKellerPA7LC(config.SensorConfig{
		Unit:           "PSI",
		Offset:         0.1,
		Scale:          50,
		VoltageDivider: config.VoltageDividerConfig{R1: 1000, R2: 3000},
	})
	require.NoError(t, err)
	assert.Equal(t, PSI, s.Unit)
	assert.Equal(t, 0.1, s.Offset)
	assert.Equal(t, float64(50), s.Scale)

	_, err = NewKellerPA7LC(config.SensorConfig{Unit: "torr"})
	assert.Error(t, err)
}

func TestFuncAndVolts(t *testing.T) {
	var s Sensor[float64] = Func[float64](func(v float64) float64 { return v * 2 })
	assert.Equal(t, 3.0, s.Convert(1.5))
	assert.Equal(t, 1.5, Volts{}.Convert(1.5))
}

func TestPressure_Record(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	tags := []lineproto.Tag{{Key: "sensor", Value: "pa7lc"}}

	rec := Pressure{Value: 1.5, Unit: Bar}.Record(ts, lineproto.Millisecond, tags...)
	line, err := lineproto.Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, "pressure,sensor=pa7lc,unit=bar pressure=1.5 1700000000000", line)

	// The caller's tag slice is not modified.
	assert.Len(t, tags, 1)
}

func TestUnit_JSON(t *testing.T) {
	data, err := json.Marshal(Pressure{Value: 2, Unit: KPa})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":2,"unit":"kPa"}`, string(data))

	var p Pressure
	require.NoError(t, json.Unmarshal([]byte(`{"value":3,"unit":"mbar"}`), &p))
	assert.Equal(t, Pressure{Value: 3, Unit: Millibar}, p)
}
