// Package units provides the value types used by pod settings: byte sizes,
// data rates, ISO-8601 durations and values that may be unbounded.
//
// Every type renders to a canonical text form and parses it back, so that
// parse(render(v)) == v for every value that can be constructed. Sizes and
// rates keep the unit they were written with: 1024KiB and 1MiB are different
// values even though they describe the same number of bytes.
package units

import (
	"math/bits"
	"strconv"
	"strings"
)

// ByteUnit is the unit a ByteSize was expressed in.
type ByteUnit uint8

const (
	Bytes ByteUnit = iota
	KiloBytes
	KibiBytes
	MegaBytes
	MebiBytes
)

// byteUnits lists every ByteUnit; parsing walks it in order.
var byteUnits = [...]ByteUnit{Bytes, KiloBytes, KibiBytes, MegaBytes, MebiBytes}

// Suffix returns the canonical suffix of the unit.
func (u ByteUnit) Suffix() string {
	switch u {
	case Bytes:
		return "B"
	case KiloBytes:
		return "KB"
	case KibiBytes:
		return "KiB"
	case MegaBytes:
		return "MB"
	case MebiBytes:
		return "MiB"
	default:
		return ""
	}
}

// Multiplier returns the number of bytes in one unit.
func (u ByteUnit) Multiplier() uint64 {
	switch u {
	case Bytes:
		return 1
	case KiloBytes:
		return 1000
	case KibiBytes:
		return 1 << 10
	case MegaBytes:
		return 1000 * 1000
	case MebiBytes:
		return 1 << 20
	default:
		return 0
	}
}

// ByteSize is a size written as a magnitude and a unit.
type ByteSize struct {
	Magnitude uint64
	Unit      ByteUnit
}

// NewByteSize returns a ByteSize of n units.
func NewByteSize(n uint64, u ByteUnit) ByteSize {
	return ByteSize{Magnitude: n, Unit: u}
}

// ParseByteSize parses text such as "10MB" or "512kib".
// The suffix is matched case-insensitively and is mandatory.
func ParseByteSize(text string) (ByteSize, error) {
	n, suffix, err := splitMagnitude(text)
	if err != nil {
		return ByteSize{}, err
	}
	for _, u := range byteUnits {
		if strings.EqualFold(suffix, u.Suffix()) {
			return ByteSize{Magnitude: n, Unit: u}, nil
		}
	}
	return ByteSize{}, parseErr(ErrInvalidUnit, text)
}

// String renders the size as "<magnitude><suffix>", e.g. "10MB".
func (s ByteSize) String() string {
	return strconv.FormatUint(s.Magnitude, 10) + s.Unit.Suffix()
}

// Bytes returns the size in bytes. ok is false if the value overflows uint64.
func (s ByteSize) Bytes() (n uint64, ok bool) {
	hi, lo := bits.Mul64(s.Magnitude, s.Unit.Multiplier())
	return lo, hi == 0
}

// MarshalText implements encoding.TextMarshaler.
func (s ByteSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ByteSize) UnmarshalText(b []byte) error {
	v, err := ParseByteSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// splitMagnitude splits the leading run of ASCII digits from the rest of text.
func splitMagnitude(text string) (uint64, string, error) {
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", parseErr(ErrInvalidMagnitude, text)
	}
	n, err := strconv.ParseUint(text[:i], 10, 64)
	if err != nil {
		return 0, "", parseErr(ErrInvalidMagnitude, text)
	}
	if i == len(text) {
		return 0, "", parseErr(ErrInvalidUnit, text)
	}
	return n, text[i:], nil
}
