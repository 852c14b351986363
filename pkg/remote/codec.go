package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/itohio/rctrl/pkg/sensor"
)

// Wire format, little-endian, no version or framing (the transport frames messages):
//
//	Command:   u32 variant index
//	DataFrame: u8 present [f64 value, u32 unit]
//	           u8 present [u8 valve]
//	           u8 present [u64 length, bytes message]
//
// The frame time is not sent.

var errShort = errors.New("unexpected end of message")

// DecodeError reports a malformed inbound message.
type DecodeError struct {
	Message string // "command" or "data frame"
	Offset  int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("remote: decode %s at byte %d: %v", e.Message, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeCommand serializes c.
func EncodeCommand(c Command) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(c))
}

// DecodeCommand parses a message produced by EncodeCommand.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) != 4 {
		return 0, &DecodeError{Message: "command", Offset: min(len(b), 4), Err: fmt.Errorf("expected 4 bytes, got %d", len(b))}
	}
	c := Command(binary.LittleEndian.Uint32(b))
	if !c.Valid() {
		return 0, &DecodeError{Message: "command", Err: fmt.Errorf("unknown variant %d", uint32(c))}
	}
	return c, nil
}

// EncodeDataFrame serializes f.
func EncodeDataFrame(f DataFrame) []byte {
	b := make([]byte, 0, 1+12+1+1+1+8+len(f.Message))

	if f.Sensor != nil {
		b = append(b, 1)
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f.Sensor.Value))
		b = binary.LittleEndian.AppendUint32(b, uint32(f.Sensor.Unit))
	} else {
		b = append(b, 0)
	}

	if f.Valve != nil {
		b = append(b, 1, boolByte(*f.Valve))
	} else {
		b = append(b, 0)
	}

	if f.Message != "" {
		b = append(b, 1)
		b = binary.LittleEndian.AppendUint64(b, uint64(len(f.Message)))
		b = append(b, f.Message...)
	} else {
		b = append(b, 0)
	}

	return b
}

// DecodeDataFrame parses a message produced by EncodeDataFrame. The returned
// frame has a zero Time.
func DecodeDataFrame(b []byte) (DataFrame, error) {
	r := reader{b: b}
	var f DataFrame

	if r.option() {
		value := math.Float64frombits(r.u64())
		unit := sensor.Unit(r.u32())
		if r.err == nil && unit > sensor.PSI {
			r.fail(fmt.Errorf("unknown pressure unit %d", uint32(unit)))
		}
		f.Sensor = &sensor.Pressure{Value: value, Unit: unit}
	}

	if r.option() {
		v := r.u8()
		switch v {
		case 0, 1:
			valve := v == 1
			f.Valve = &valve
		default:
			r.fail(fmt.Errorf("invalid bool %d", v))
		}
	}

	if r.option() {
		n := r.u64()
		if r.err == nil && n > uint64(len(r.b)-r.off) {
			r.fail(errShort)
		}
		if r.err == nil {
			f.Message = string(r.b[r.off : r.off+int(n)])
			r.off += int(n)
		}
	}

	if r.err == nil && r.off != len(r.b) {
		r.fail(fmt.Errorf("%d trailing bytes", len(r.b)-r.off))
	}
	if r.err != nil {
		return DataFrame{}, &DecodeError{Message: "data frame", Offset: r.off, Err: r.err}
	}
	return f, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// reader consumes little-endian values and remembers the first error.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b)-r.off < n {
		r.fail(errShort)
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

func (r *reader) u8() uint8 {
	if p := r.take(1); p != nil {
		return p[0]
	}
	return 0
}

func (r *reader) u32() uint32 {
	if p := r.take(4); p != nil {
		return binary.LittleEndian.Uint32(p)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if p := r.take(8); p != nil {
		return binary.LittleEndian.Uint64(p)
	}
	return 0
}

// option reads a presence tag.
func (r *reader) option() bool {
	switch tag := r.u8(); tag {
	case 0:
		return false
	case 1:
		return r.err == nil
	default:
		r.fail(fmt.Errorf("invalid option tag %d", tag))
		return false
	}
}
