package ads101x

import (
	"errors"
	"math/bits"
	"testing"
	"time"

	"github.com/itohio/rctrl/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_PowerOnRegisters(t *testing.T) {
	m := NewMock(nil)

	assert.Equal(t, uint16(0x8583), m.Register(RegConfig))
	assert.Equal(t, uint16(0x8000), m.Register(RegLoThresh))
	assert.Equal(t, uint16(0x7FF0), m.Register(RegHiThresh))

	word, err := m.ReadWord(RegConfig)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8385), word, "SMBus word is byte-swapped")
}

func TestMock_Variants(t *testing.T) {
	tests := []struct {
		variant string
		write   uint16
		want    uint16
	}{
		{"ads1015", 0x4283, 0x4283},
		{"ads1014", 0x4283, 0x0283}, // mux ignored
		{"ads1013", 0x4283, 0x0483}, // only os, mode and rate stick
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			m := NewMock(&config.MockConfig{Variant: tt.variant, Period: time.Second})
			require.NoError(t, m.WriteWord(RegConfig, bits.ReverseBytes16(tt.write)))
			assert.Equal(t, tt.want, m.Register(RegConfig))
		})
	}
}

func TestMock_ConversionIsReadOnly(t *testing.T) {
	m := NewMock(nil)
	m.SetVoltage(0.25)

	require.NoError(t, m.WriteWord(RegConversion, 0xFFFF))
	word, err := m.ReadWord(RegConversion)
	require.NoError(t, err)
	assert.Equal(t, int16(250), DecodeRawSample(word))
}

func TestMock_FaultAndClose(t *testing.T) {
	m := NewMock(nil)
	boom := errors.New("arbitration lost")

	m.SetFault(boom)
	_, err := m.ReadWord(RegConversion)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.WriteWord(RegConfig, 0), boom)

	m.SetFault(nil)
	_, err = m.ReadWord(RegConversion)
	assert.NoError(t, err)

	require.NoError(t, m.Close())
	_, err = m.ReadWord(RegConversion)
	assert.Error(t, err)
}

func TestParseVariant(t *testing.T) {
	assert.Equal(t, ADS1013, ParseVariant("ADS1013"))
	assert.Equal(t, ADS1014, ParseVariant("ads1014"))
	assert.Equal(t, ADS1015, ParseVariant("ads1015"))
	assert.Equal(t, ADS1015, ParseVariant(""))
}
