// Package ads101x drives the TI ADS1013/ADS1014/ADS1015 12-bit analog-to-digital
// converters over a register transport.
//
// See:
//
//	https://www.ti.com/lit/ds/symlink/ads1015.pdf
package ads101x

import (
	"math/bits"
)

// Register addresses.
const (
	RegConversion uint8 = 0x00
	RegConfig     uint8 = 0x01
	RegLoThresh   uint8 = 0x02
	RegHiThresh   uint8 = 0x03
)

// Config register field offsets and masks.
const (
	osOffset       = 15
	muxOffset      = 12
	gainOffset     = 9
	modeOffset     = 8
	dataRateOffset = 5
	compModeOffset = 4
	compPolOffset  = 3
	compLatOffset  = 2
	compQueOffset  = 0

	osMask       = 0x8000
	muxMask      = 0x7000
	gainMask     = 0x0E00
	modeMask     = 0x0100
	dataRateMask = 0x00E0
	compModeMask = 0x0010
	compPolMask  = 0x0008
	compLatMask  = 0x0004
	compQueMask  = 0x0003
)

// ConfigWord is the decoded content of the config register.
type ConfigWord struct {
	OS           OS
	Mux          Mux
	Gain         Gain
	Mode         Mode
	DataRate     DataRate
	CompMode     CompMode
	CompPolarity CompPolarity
	CompLatch    CompLatch
	CompQueue    CompQueue
}

// DefaultConfig returns the power-on configuration of the device (0x8583).
func DefaultConfig() ConfigWord {
	return ConfigWord{
		OS:           OSOn,
		Mux:          MuxAin0Ain1,
		Gain:         Gain2V048,
		Mode:         ModeSingleShot,
		DataRate:     DataRate1600,
		CompMode:     CompTraditional,
		CompPolarity: CompActiveLow,
		CompLatch:    CompNonlatching,
		CompQueue:    CompQueueDisable,
	}
}

// DecodeConfig unpacks a config register value. Reserved gain and data rate
// patterns map to the nearest defined setting.
func DecodeConfig(word uint16) ConfigWord {
	gain := Gain((word & gainMask) >> gainOffset)
	if gain > Gain0V256 {
		gain = Gain0V256
	}
	rate := DataRate((word & dataRateMask) >> dataRateOffset)
	if rate > DataRate3300 {
		rate = DataRate3300
	}
	return ConfigWord{
		OS:           OS((word & osMask) >> osOffset),
		Mux:          Mux((word & muxMask) >> muxOffset),
		Gain:         gain,
		Mode:         Mode((word & modeMask) >> modeOffset),
		DataRate:     rate,
		CompMode:     CompMode((word & compModeMask) >> compModeOffset),
		CompPolarity: CompPolarity((word & compPolMask) >> compPolOffset),
		CompLatch:    CompLatch((word & compLatMask) >> compLatOffset),
		CompQueue:    CompQueue((word & compQueMask) >> compQueOffset),
	}
}

// EncodeConfig packs cfg into a config register value.
func EncodeConfig(cfg ConfigWord) uint16 {
	return uint16(cfg.OS)<<osOffset&osMask |
		uint16(cfg.Mux)<<muxOffset&muxMask |
		uint16(cfg.Gain)<<gainOffset&gainMask |
		uint16(cfg.Mode)<<modeOffset&modeMask |
		uint16(cfg.DataRate)<<dataRateOffset&dataRateMask |
		uint16(cfg.CompMode)<<compModeOffset&compModeMask |
		uint16(cfg.CompPolarity)<<compPolOffset&compPolMask |
		uint16(cfg.CompLatch)<<compLatOffset&compLatMask |
		uint16(cfg.CompQueue)<<compQueOffset&compQueMask
}

// DecodeRawSample converts a conversion register word, as returned by an SMBus
// word read (least significant byte first), into a signed 12-bit count.
func DecodeRawSample(word uint16) int16 {
	swapped := bits.ReverseBytes16(word)
	raw := swapped >> 4
	if swapped&0x8000 != 0 {
		raw |= 0xF000
	}
	return int16(raw)
}

// EncodeRawSample is the inverse of DecodeRawSample. Counts outside
// [-2048, 2047] are clamped.
func EncodeRawSample(count int16) uint16 {
	switch {
	case count > 2047:
		count = 2047
	case count < -2048:
		count = -2048
	}
	return bits.ReverseBytes16(uint16(count) << 4)
}

// LSBSize returns the volts represented by one count at gain g.
func LSBSize(g Gain) float64 {
	switch g {
	case Gain6V144:
		return 3e-3
	case Gain4V096:
		return 2e-3
	case Gain2V048:
		return 1e-3
	case Gain1V024:
		return 0.5e-3
	case Gain0V512:
		return 0.25e-3
	default:
		return 0.125e-3
	}
}
