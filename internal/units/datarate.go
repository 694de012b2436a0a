package units

import (
	"strconv"
	"strings"
)

// RateUnit is the unit a DataRate was expressed in.
type RateUnit uint8

const (
	BytesPerSec RateUnit = iota
	KiloBytesPerSec
	MegaBytesPerSec
)

var rateUnits = [...]RateUnit{BytesPerSec, KiloBytesPerSec, MegaBytesPerSec}

// Suffix returns the canonical suffix of the unit.
func (u RateUnit) Suffix() string {
	switch u {
	case BytesPerSec:
		return "B/s"
	case KiloBytesPerSec:
		return "kB/s"
	case MegaBytesPerSec:
		return "MB/s"
	default:
		return ""
	}
}

// DataRate is a transfer rate written as a magnitude and a unit.
type DataRate struct {
	Magnitude uint64
	Unit      RateUnit
}

// NewDataRate returns a DataRate of n units.
func NewDataRate(n uint64, u RateUnit) DataRate {
	return DataRate{Magnitude: n, Unit: u}
}

// ParseDataRate parses text such as "10kB/s". The suffix is matched
// case-insensitively, so "10Mb/s" is ten megabytes per second.
func ParseDataRate(text string) (DataRate, error) {
	n, suffix, err := splitMagnitude(text)
	if err != nil {
		return DataRate{}, err
	}
	for _, u := range rateUnits {
		if strings.EqualFold(suffix, u.Suffix()) {
			return DataRate{Magnitude: n, Unit: u}, nil
		}
	}
	return DataRate{}, parseErr(ErrInvalidUnit, text)
}

// String renders the rate as "<magnitude><suffix>", e.g. "10kB/s".
func (r DataRate) String() string {
	return strconv.FormatUint(r.Magnitude, 10) + r.Unit.Suffix()
}

// MarshalText implements encoding.TextMarshaler.
func (r DataRate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *DataRate) UnmarshalText(b []byte) error {
	v, err := ParseDataRate(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
