package podconfig

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned for enum text that names no known value.
var ErrInvalidValue = errors.New("invalid value")

// TLSVersion is the lowest TLS version clients and servers may negotiate.
type TLSVersion uint8

const (
	TLS10 TLSVersion = iota
	TLS11
	TLS12
	TLS13
)

// String returns the version as written in settings, e.g. "1.2".
func (v TLSVersion) String() string {
	switch v {
	case TLS10:
		return "1.0"
	case TLS11:
		return "1.1"
	case TLS12:
		return "1.2"
	case TLS13:
		return "1.3"
	default:
		return fmt.Sprintf("TLSVersion(%d)", uint8(v))
	}
}

// ParseTLSVersion parses "1.0" through "1.3".
func ParseTLSVersion(text string) (TLSVersion, error) {
	switch text {
	case "1.0":
		return TLS10, nil
	case "1.1":
		return TLS11, nil
	case "1.2":
		return TLS12, nil
	case "1.3":
		return TLS13, nil
	default:
		return 0, fmt.Errorf("%w: TLS version %q", ErrInvalidValue, text)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v TLSVersion) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *TLSVersion) UnmarshalText(b []byte) error {
	p, err := ParseTLSVersion(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// CipherSuite is the weakest family of cipher suites that may be used.
type CipherSuite uint8

const (
	CipherLow CipherSuite = iota
	CipherMedium
	CipherHigh
	CipherVeryHigh
)

// String returns the name used in settings.
func (c CipherSuite) String() string {
	switch c {
	case CipherLow:
		return "low"
	case CipherMedium:
		return "medium"
	case CipherHigh:
		return "high"
	case CipherVeryHigh:
		return "very-high"
	default:
		return fmt.Sprintf("CipherSuite(%d)", uint8(c))
	}
}

// ParseCipherSuite parses "low", "medium", "high" or "very-high".
func ParseCipherSuite(text string) (CipherSuite, error) {
	switch text {
	case "low":
		return CipherLow, nil
	case "medium":
		return CipherMedium, nil
	case "high":
		return CipherHigh, nil
	case "very-high":
		return CipherVeryHigh, nil
	default:
		return 0, fmt.Errorf("%w: cipher suite %q", ErrInvalidValue, text)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CipherSuite) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CipherSuite) UnmarshalText(b []byte) error {
	p, err := ParseCipherSuite(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}
