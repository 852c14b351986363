package ads101x

import (
	"fmt"
	"strings"

	"github.com/itohio/rctrl/pkg/config"
)

// OS is the operational status bit. Writing OSOn starts a single conversion;
// reading OSOn means the device is idle.
type OS uint8

const (
	OSOff OS = iota
	OSOn
)

// Mux selects the input pair. Ignored by the ADS1013 and ADS1014.
type Mux uint8

const (
	MuxAin0Ain1 Mux = iota
	MuxAin0Ain3
	MuxAin1Ain3
	MuxAin2Ain3
	MuxAin0Gnd
	MuxAin1Gnd
	MuxAin2Gnd
	MuxAin3Gnd
)

// Gain selects the programmable gain amplifier full-scale range. Ignored by the ADS1013.
type Gain uint8

const (
	Gain6V144 Gain = iota
	Gain4V096
	Gain2V048
	Gain1V024
	Gain0V512
	Gain0V256
)

// Mode selects continuous or single-shot conversion.
type Mode uint8

const (
	ModeContinuous Mode = iota
	ModeSingleShot
)

// DataRate selects the conversion rate in samples per second.
type DataRate uint8

const (
	DataRate128 DataRate = iota
	DataRate250
	DataRate490
	DataRate920
	DataRate1600
	DataRate2400
	DataRate3300
)

// CompMode selects the comparator mode. Comparator fields are ignored by the ADS1013.
type CompMode uint8

const (
	CompTraditional CompMode = iota
	CompWindow
)

// CompPolarity is the ALERT/RDY pin polarity.
type CompPolarity uint8

const (
	CompActiveLow CompPolarity = iota
	CompActiveHigh
)

// CompLatch selects whether ALERT/RDY latches.
type CompLatch uint8

const (
	CompNonlatching CompLatch = iota
	CompLatching
)

// CompQueue sets how many conversions exceed a threshold before ALERT/RDY asserts.
type CompQueue uint8

const (
	CompQueueOne CompQueue = iota
	CompQueueTwo
	CompQueueFour
	CompQueueDisable
)

var (
	osNames       = []string{"off", "on"}
	muxNames      = []string{"ain0_ain1", "ain0_ain3", "ain1_ain3", "ain2_ain3", "ain0_gnd", "ain1_gnd", "ain2_gnd", "ain3_gnd"}
	gainNames     = []string{"6.144V", "4.096V", "2.048V", "1.024V", "0.512V", "0.256V"}
	modeNames     = []string{"continuous", "single_shot"}
	dataRateNames = []string{"128", "250", "490", "920", "1600", "2400", "3300"}
	compModeNames = []string{"traditional", "window"}
	compPolNames  = []string{"active_low", "active_high"}
	compLatNames  = []string{"nonlatching", "latching"}
	compQueNames  = []string{"one", "two", "four", "disable"}
)

func nameOf[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("invalid(%d)", uint8(v))
}

func parseName[T ~uint8](names []string, field, s string) (T, error) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("ads101x: unknown %s %q", field, s)
}

func (v OS) String() string           { return nameOf(osNames, v) }
func (v Mux) String() string          { return nameOf(muxNames, v) }
func (v Gain) String() string         { return nameOf(gainNames, v) }
func (v Mode) String() string         { return nameOf(modeNames, v) }
func (v DataRate) String() string     { return nameOf(dataRateNames, v) }
func (v CompMode) String() string     { return nameOf(compModeNames, v) }
func (v CompPolarity) String() string { return nameOf(compPolNames, v) }
func (v CompLatch) String() string    { return nameOf(compLatNames, v) }
func (v CompQueue) String() string    { return nameOf(compQueNames, v) }

// SamplesPerSecond returns the numeric conversion rate.
func (v DataRate) SamplesPerSecond() int {
	return [...]int{128, 250, 490, 920, 1600, 2400, 3300}[min(int(v), int(DataRate3300))]
}

// FullScale returns the full-scale input range in volts.
func (v Gain) FullScale() float64 {
	return LSBSize(v) * 2048
}

// ParseConfig builds the startup configuration from its textual form. OS is set
// so that a single-shot configuration starts converting immediately.
func ParseConfig(r config.RegisterConfig) (ConfigWord, error) {
	cfg := DefaultConfig()
	var err error

	if cfg.Mux, err = parseName[Mux](muxNames, "mux", r.Mux); err != nil {
		return cfg, err
	}
	if cfg.Gain, err = parseName[Gain](gainNames, "gain", r.Gain); err != nil {
		return cfg, err
	}
	if cfg.Mode, err = parseName[Mode](modeNames, "mode", r.Mode); err != nil {
		return cfg, err
	}
	if cfg.DataRate, err = parseName[DataRate](dataRateNames, "data rate", r.DataRate); err != nil {
		return cfg, err
	}
	if cfg.CompMode, err = parseName[CompMode](compModeNames, "comparator mode", r.CompMode); err != nil {
		return cfg, err
	}
	if cfg.CompPolarity, err = parseName[CompPolarity](compPolNames, "comparator polarity", r.CompPolarity); err != nil {
		return cfg, err
	}
	if cfg.CompLatch, err = parseName[CompLatch](compLatNames, "comparator latch", r.CompLatch); err != nil {
		return cfg, err
	}
	if cfg.CompQueue, err = parseName[CompQueue](compQueNames, "comparator queue", r.CompQueue); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// String formats the configuration for logs.
func (c ConfigWord) String() string {
	return fmt.Sprintf("os=%s mux=%s gain=%s mode=%s dr=%s comp=%s/%s/%s/%s",
		c.OS, c.Mux, c.Gain, c.Mode, c.DataRate,
		c.CompMode, c.CompPolarity, c.CompLatch, c.CompQueue)
}
