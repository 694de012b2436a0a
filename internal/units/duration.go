package units

import (
	"strconv"
)

// Precision fixes which components a Duration may use.
type Precision interface {
	allowsTime() bool
}

// DateLike durations count days, weeks, months or years.
type DateLike struct{}

// DateTimeLike durations may also count hours, minutes or seconds.
type DateTimeLike struct{}

func (DateLike) allowsTime() bool     { return false }
func (DateTimeLike) allowsTime() bool { return true }

// TimeUnit is the single component of a Duration.
type TimeUnit uint8

const (
	Days TimeUnit = iota
	Weeks
	Months
	Years
	Hours
	Minutes
	Seconds
)

// designator returns the ISO-8601 letter of the unit and whether it sits
// after the "T" time separator.
func (u TimeUnit) designator() (letter byte, timePart bool) {
	switch u {
	case Seconds:
		return 'S', true
	case Minutes:
		return 'M', true
	case Hours:
		return 'H', true
	case Days:
		return 'D', false
	case Weeks:
		return 'W', false
	case Months:
		return 'M', false
	case Years:
		return 'Y', false
	default:
		return 0, false
	}
}

// seconds is the length of one unit. Months and years use fixed 30 and 365 day lengths.
func (u TimeUnit) seconds() uint64 {
	const day = 24 * 60 * 60
	switch u {
	case Seconds:
		return 1
	case Minutes:
		return 60
	case Hours:
		return 60 * 60
	case Days:
		return day
	case Weeks:
		return 7 * day
	case Months:
		return 30 * day
	case Years:
		return 365 * day
	default:
		return 0
	}
}

func unitFor(letter byte, timePart bool) (TimeUnit, bool) {
	if timePart {
		switch letter {
		case 'H':
			return Hours, true
		case 'M':
			return Minutes, true
		case 'S':
			return Seconds, true
		}
		return 0, false
	}
	switch letter {
	case 'D':
		return Days, true
	case 'W':
		return Weeks, true
	case 'M':
		return Months, true
	case 'Y':
		return Years, true
	}
	return 0, false
}

// Duration is an amount of a single time unit with a fixed precision.
// The zero value is "P0D" for either precision.
type Duration[P Precision] struct {
	amount uint32
	unit   TimeUnit
}

// NewDuration returns amount units of time. Units finer than a day are
// rejected when P does not allow them.
func NewDuration[P Precision](amount uint32, unit TimeUnit) (Duration[P], error) {
	d := Duration[P]{amount: amount, unit: unit}
	letter, timePart := unit.designator()
	if letter == 0 {
		return Duration[P]{}, parseErr(ErrInvalidDuration, strconv.FormatUint(uint64(amount), 10))
	}
	var p P
	if timePart && !p.allowsTime() {
		return Duration[P]{}, parseErr(ErrInvalidDuration, d.String())
	}
	return d, nil
}

// MustDuration is like NewDuration but panics on error.
// It is meant for compiled-in defaults.
func MustDuration[P Precision](amount uint32, unit TimeUnit) Duration[P] {
	d, err := NewDuration[P](amount, unit)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDuration parses a single-component ISO-8601 duration such as "P1Y" or "PT6H".
func ParseDuration[P Precision](text string) (Duration[P], error) {
	s := text
	if len(s) < 3 || s[0] != 'P' {
		return Duration[P]{}, parseErr(ErrInvalidDuration, text)
	}
	s = s[1:]
	timePart := s[0] == 'T'
	if timePart {
		s = s[1:]
	}
	var p P
	if timePart && !p.allowsTime() {
		return Duration[P]{}, parseErr(ErrInvalidDuration, text)
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i != len(s)-1 {
		return Duration[P]{}, parseErr(ErrInvalidDuration, text)
	}
	n, err := strconv.ParseUint(s[:i], 10, 32)
	if err != nil {
		return Duration[P]{}, parseErr(ErrInvalidDuration, text)
	}
	unit, ok := unitFor(s[i], timePart)
	if !ok {
		return Duration[P]{}, parseErr(ErrInvalidDuration, text)
	}
	return Duration[P]{amount: uint32(n), unit: unit}, nil
}

// Amount returns the number of units.
func (d Duration[P]) Amount() uint32 { return d.amount }

// Unit returns the single component.
func (d Duration[P]) Unit() TimeUnit { return d.unit }

// String renders the ISO-8601 form.
func (d Duration[P]) String() string {
	letter, timePart := d.unit.designator()
	buf := make([]byte, 0, 16)
	buf = append(buf, 'P')
	if timePart {
		buf = append(buf, 'T')
	}
	buf = strconv.AppendUint(buf, uint64(d.amount), 10)
	return string(append(buf, letter))
}

// Seconds returns the length of the duration in seconds.
func (d Duration[P]) Seconds() uint64 {
	return uint64(d.amount) * d.unit.seconds()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration[P]) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration[P]) UnmarshalText(b []byte) error {
	v, err := ParseDuration[P](string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
