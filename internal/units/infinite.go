package units

import (
	"encoding"
	"fmt"
)

// InfiniteToken is the text form of an unbounded PossiblyInfinite value.
const InfiniteToken = "infinite"

// PossiblyInfinite holds either a finite T or no bound at all.
// The zero value is a finite zero T.
type PossiblyInfinite[T comparable] struct {
	value    T
	infinite bool
}

// Finite wraps a bounded value.
func Finite[T comparable](v T) PossiblyInfinite[T] {
	return PossiblyInfinite[T]{value: v}
}

// Infinite returns the unbounded value.
func Infinite[T comparable]() PossiblyInfinite[T] {
	return PossiblyInfinite[T]{infinite: true}
}

// IsInfinite reports whether the value is unbounded.
func (p PossiblyInfinite[T]) IsInfinite() bool { return p.infinite }

// Value returns the finite value. ok is false for the infinite variant.
func (p PossiblyInfinite[T]) Value() (v T, ok bool) {
	if p.infinite {
		return v, false
	}
	return p.value, true
}

// String renders the finite value through T, or InfiniteToken.
func (p PossiblyInfinite[T]) String() string {
	if p.infinite {
		return InfiniteToken
	}
	return fmt.Sprint(p.value)
}

// ParsePossiblyInfinite recognizes InfiniteToken (case-sensitively) before
// handing text to parse.
func ParsePossiblyInfinite[T comparable](text string, parse func(string) (T, error)) (PossiblyInfinite[T], error) {
	if text == InfiniteToken {
		return Infinite[T](), nil
	}
	v, err := parse(text)
	if err != nil {
		return PossiblyInfinite[T]{}, err
	}
	return Finite(v), nil
}

// InfiniteDuration is the retention type used by pod settings.
type InfiniteDuration = PossiblyInfinite[Duration[DateLike]]

// ParseRetention parses "infinite" or a date-precision ISO-8601 duration.
func ParseRetention(text string) (InfiniteDuration, error) {
	return ParsePossiblyInfinite(text, ParseDuration[DateLike])
}

// MarshalText implements encoding.TextMarshaler.
func (p PossiblyInfinite[T]) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for any T whose pointer
// implements it.
func (p *PossiblyInfinite[T]) UnmarshalText(b []byte) error {
	if string(b) == InfiniteToken {
		*p = Infinite[T]()
		return nil
	}
	var v T
	u, ok := any(&v).(encoding.TextUnmarshaler)
	if !ok {
		return fmt.Errorf("units: %T cannot be decoded from text", v)
	}
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*p = Finite(v)
	return nil
}
