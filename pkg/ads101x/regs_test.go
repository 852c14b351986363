package ads101x

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_Word(t *testing.T) {
	assert.Equal(t, uint16(0x8583), EncodeConfig(DefaultConfig()))
	assert.Equal(t, DefaultConfig(), DecodeConfig(0x8583))
}

func TestConfig_RoundTrip(t *testing.T) {
	n := 0
	for os := OSOff; os <= OSOn; os++ {
		for mux := MuxAin0Ain1; mux <= MuxAin3Gnd; mux++ {
			for gain := Gain6V144; gain <= Gain0V256; gain++ {
				for mode := ModeContinuous; mode <= ModeSingleShot; mode++ {
					for dr := DataRate128; dr <= DataRate3300; dr++ {
						for cm := CompTraditional; cm <= CompWindow; cm++ {
							for cp := CompActiveLow; cp <= CompActiveHigh; cp++ {
								for cl := CompNonlatching; cl <= CompLatching; cl++ {
									for cq := CompQueueOne; cq <= CompQueueDisable; cq++ {
										cfg := ConfigWord{
											OS: os, Mux: mux, Gain: gain, Mode: mode, DataRate: dr,
											CompMode: cm, CompPolarity: cp, CompLatch: cl, CompQueue: cq,
										}
										if got := DecodeConfig(EncodeConfig(cfg)); got != cfg {
											t.Fatalf("round trip of %s gave %s", cfg, got)
										}
										n++
									}
								}
							}
						}
					}
				}
			}
		}
	}
	assert.Equal(t, 2*8*6*2*7*2*2*2*4, n)
}

func TestDecodeConfig_Fields(t *testing.T) {
	tests := []struct {
		name string
		word uint16
		want func(c ConfigWord) bool
	}{
		{"os off", 0x0583, func(c ConfigWord) bool { return c.OS == OSOff }},
		{"mux ain3/gnd", 0x7583, func(c ConfigWord) bool { return c.Mux == MuxAin3Gnd }},
		{"gain 6.144", 0x8183, func(c ConfigWord) bool { return c.Gain == Gain6V144 }},
		{"continuous", 0x8483, func(c ConfigWord) bool { return c.Mode == ModeContinuous }},
		{"128 sps", 0x8503, func(c ConfigWord) bool { return c.DataRate == DataRate128 }},
		{"window comparator", 0x8593, func(c ConfigWord) bool { return c.CompMode == CompWindow }},
		{"active high", 0x858B, func(c ConfigWord) bool { return c.CompPolarity == CompActiveHigh }},
		{"latching", 0x8587, func(c ConfigWord) bool { return c.CompLatch == CompLatching }},
		{"queue one", 0x8580, func(c ConfigWord) bool { return c.CompQueue == CompQueueOne }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want(DecodeConfig(tt.word)), "0x%04x decoded to %s", tt.word, DecodeConfig(tt.word))
		})
	}
}

func TestDecodeConfig_ReservedPatterns(t *testing.T) {
	// Gain patterns 6 and 7 select 0.256V on the device.
	assert.Equal(t, Gain0V256, DecodeConfig(6<<gainOffset).Gain)
	assert.Equal(t, Gain0V256, DecodeConfig(7<<gainOffset).Gain)

	// Data rate pattern 7 selects 3300 SPS.
	assert.Equal(t, DataRate3300, DecodeConfig(7<<dataRateOffset).DataRate)

	// Every word decodes without panicking into valid enums.
	for w := 0; w <= 0xFFFF; w++ {
		c := DecodeConfig(uint16(w))
		if c.Gain > Gain0V256 || c.DataRate > DataRate3300 || c.Mux > MuxAin3Gnd || c.CompQueue > CompQueueDisable {
			t.Fatalf("0x%04x decoded to out-of-domain %s", w, c)
		}
	}
}

// conversionWord builds the SMBus word for a conversion register value.
func conversionWord(register uint16) uint16 {
	return bits.ReverseBytes16(register)
}

func TestDecodeRawSample(t *testing.T) {
	tests := []struct {
		name     string
		register uint16
		want     int16
	}{
		{"zero", 0x0000, 0},
		{"one count", 0x0010, 1},
		{"full scale positive", 0x7FF0, 2047},
		{"minus one", 0xFFF0, -1},
		{"full scale negative", 0x8000, -2048},
		{"thousand", uint16(1000) << 4, 1000},
		{"minus thousand", 0xC180, -1000},
		{"low nibble ignored", 0x0C8F, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeRawSample(conversionWord(tt.register)))
		})
	}
}

func TestDecodeRawSample_RangeAndLinearity(t *testing.T) {
	for w := 0; w <= 0xFFFF; w++ {
		register := uint16(w)
		got := DecodeRawSample(conversionWord(register))
		if got < -2048 || got > 2047 {
			t.Fatalf("register 0x%04x decoded out of range: %d", register, got)
		}
		// The sample is the arithmetic top 12 bits of the register.
		if want := int16(register) >> 4; got != want {
			t.Fatalf("register 0x%04x decoded to %d, want %d", register, got, want)
		}
	}
}

func TestEncodeRawSample(t *testing.T) {
	for c := -2048; c <= 2047; c++ {
		if got := DecodeRawSample(EncodeRawSample(int16(c))); got != int16(c) {
			t.Fatalf("count %d round tripped to %d", c, got)
		}
	}
	assert.Equal(t, int16(2047), DecodeRawSample(EncodeRawSample(3000)))
	assert.Equal(t, int16(-2048), DecodeRawSample(EncodeRawSample(-3000)))
}

func TestLSBSize(t *testing.T) {
	tests := []struct {
		gain Gain
		want float64
	}{
		{Gain6V144, 3e-3},
		{Gain4V096, 2e-3},
		{Gain2V048, 1e-3},
		{Gain1V024, 0.5e-3},
		{Gain0V512, 0.25e-3},
		{Gain0V256, 0.125e-3},
	}

	for _, tt := range tests {
		t.Run(tt.gain.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LSBSize(tt.gain))
		})
	}
	assert.InDelta(t, 2.048, Gain2V048.FullScale(), 1e-12)
}
