// Package lineproto encodes time-series records in the InfluxDB line protocol:
//
//	measurement,tag1=v1,tag2=v2 field1=v1,field2=v2 timestamp
//
// Tags and fields keep the order they were added in.
package lineproto

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultMeasurement names records that do not set one.
const DefaultMeasurement = "measurement"

var (
	// ErrNoFields is returned for records without fields. Such records are not emitted.
	ErrNoFields = errors.New("lineproto: record has no fields")
	// ErrDuplicateKey is returned when a tag or field key repeats within a record.
	ErrDuplicateKey = errors.New("lineproto: duplicate key")
	// ErrEmptyKey is returned for tags or fields with an empty key.
	ErrEmptyKey = errors.New("lineproto: empty key")
	// ErrInvalidValue is returned for float fields that are NaN or infinite.
	ErrInvalidValue = errors.New("lineproto: invalid field value")
)

// Precision is the timestamp resolution of a record.
type Precision uint8

const (
	Nanosecond Precision = iota
	Microsecond
	Millisecond
	Second
)

var precisionNames = [...]string{"ns", "us", "ms", "s"}

func (p Precision) String() string {
	if int(p) < len(precisionNames) {
		return precisionNames[p]
	}
	return fmt.Sprintf("invalid(%d)", uint8(p))
}

// Duration returns the length of one timestamp unit.
func (p Precision) Duration() time.Duration {
	switch p {
	case Microsecond:
		return time.Microsecond
	case Millisecond:
		return time.Millisecond
	case Second:
		return time.Second
	default:
		return time.Nanosecond
	}
}

// Timestamp returns t in units of p.
func (p Precision) Timestamp(t time.Time) int64 {
	switch p {
	case Microsecond:
		return t.UnixMicro()
	case Millisecond:
		return t.UnixMilli()
	case Second:
		return t.Unix()
	default:
		return t.UnixNano()
	}
}

// ParsePrecision parses "ns", "us", "ms" or "s".
func ParsePrecision(s string) (Precision, error) {
	for i, n := range precisionNames {
		if n == s {
			return Precision(i), nil
		}
	}
	return 0, fmt.Errorf("lineproto: unknown precision %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Precision) UnmarshalText(text []byte) error {
	v, err := ParsePrecision(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Precision) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Value is a typed field value.
type Value struct {
	kind kind
	f    float64
	i    int64
	u    uint64
	b    bool
	s    string
}

type kind uint8

const (
	kindFloat kind = iota
	kindInt
	kindUint
	kindBool
	kindString
)

func Float(v float64) Value { return Value{kind: kindFloat, f: v} }
func Int(v int64) Value     { return Value{kind: kindInt, i: v} }
func Uint(v uint64) Value   { return Value{kind: kindUint, u: v} }
func Bool(v bool) Value     { return Value{kind: kindBool, b: v} }
func String(v string) Value { return Value{kind: kindString, s: v} }

func (v Value) appendTo(b *strings.Builder) {
	switch v.kind {
	case kindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
		b.WriteByte('i')
	case kindUint:
		b.WriteString(strconv.FormatUint(v.u, 10))
		b.WriteByte('u')
	case kindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case kindString:
		b.WriteByte('"')
		fieldStringEscaper.WriteString(b, v.s)
		b.WriteByte('"')
	default:
		b.WriteString(strconv.FormatFloat(v.f, 'f', -1, 64))
	}
}

// Tag is one entry of the tag set.
type Tag struct {
	Key   string
	Value string
}

// Field is one entry of the field set.
type Field struct {
	Key   string
	Value Value
}

// Record is one measurement entry.
type Record struct {
	Measurement string
	Tags        []Tag
	Fields      []Field
	Time        time.Time
	Precision   Precision
}

var (
	measurementEscaper = strings.NewReplacer(",", `\,`, " ", `\ `)
	keyEscaper         = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	fieldStringEscaper = strings.NewReplacer(`"`, `\"`, `\`, `\\`)
)

// Encode renders r as a single line without a trailing newline.
func Encode(r Record) (string, error) {
	var b strings.Builder
	if err := Append(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Append renders r into b. On error b is left unchanged.
func Append(b *strings.Builder, r Record) error {
	if len(r.Fields) == 0 {
		return ErrNoFields
	}
	if err := checkKeys(r); err != nil {
		return err
	}

	measurement := r.Measurement
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	measurementEscaper.WriteString(b, measurement)

	for _, t := range r.Tags {
		b.WriteByte(',')
		keyEscaper.WriteString(b, t.Key)
		b.WriteByte('=')
		keyEscaper.WriteString(b, t.Value)
	}

	for i, f := range r.Fields {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		keyEscaper.WriteString(b, f.Key)
		b.WriteByte('=')
		f.Value.appendTo(b)
	}

	if !r.Time.IsZero() {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(r.Precision.Timestamp(r.Time), 10))
	}

	return nil
}

func checkKeys(r Record) error {
	seen := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		if t.Key == "" || t.Value == "" {
			return fmt.Errorf("%w in tag set of %q", ErrEmptyKey, r.Measurement)
		}
		if _, ok := seen[t.Key]; ok {
			return fmt.Errorf("%w: tag %q", ErrDuplicateKey, t.Key)
		}
		seen[t.Key] = struct{}{}
	}

	clear(seen)
	for _, f := range r.Fields {
		if f.Key == "" {
			return fmt.Errorf("%w in field set of %q", ErrEmptyKey, r.Measurement)
		}
		if _, ok := seen[f.Key]; ok {
			return fmt.Errorf("%w: field %q", ErrDuplicateKey, f.Key)
		}
		seen[f.Key] = struct{}{}
		if f.Value.kind == kindFloat && (math.IsNaN(f.Value.f) || math.IsInf(f.Value.f, 0)) {
			return fmt.Errorf("%w: field %q is %v", ErrInvalidValue, f.Key, f.Value.f)
		}
	}
	return nil
}
