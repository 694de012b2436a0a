// Package secret holds sensitive text that must reach the rendered server
// configuration but never a log line or an API response.
//
// A String prints as [REDACTED] through every fmt verb, JSON, YAML and text
// marshalling. Expose is the only way to read the payload.
package secret

import (
	"crypto/subtle"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Redacted is what a String prints as.
const Redacted = "[REDACTED]"

// String is an opaque sensitive value. Copies share the payload, so Wipe
// clears every copy.
type String struct {
	payload []byte
}

// New takes ownership of s.
func New(s string) String {
	return String{payload: []byte(s)}
}

// Expose returns the payload. Only the config emitter calls it.
func (s String) Expose() string { return string(s.payload) }

// IsZero reports whether the payload is empty.
func (s String) IsZero() bool { return len(s.payload) == 0 }

// Equal compares payloads in constant time.
func (s String) Equal(other String) bool {
	return subtle.ConstantTimeCompare(s.payload, other.payload) == 1
}

// Wipe zeroes the payload in place.
func (s String) Wipe() {
	for i := range s.payload {
		s.payload[i] = 0
	}
}

func (String) String() string   { return Redacted }
func (String) GoString() string { return Redacted }

// Format implements fmt.Formatter so that %x, %q and friends redact too.
func (String) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(Redacted))
}

// MarshalText implements encoding.TextMarshaler.
func (String) MarshalText() ([]byte, error) { return []byte(Redacted), nil }

// MarshalJSON implements json.Marshaler.
func (String) MarshalJSON() ([]byte, error) { return []byte(`"` + Redacted + `"`), nil }

// MarshalYAML implements yaml.Marshaler.
func (String) MarshalYAML() (any, error) { return Redacted, nil }

// UnmarshalYAML implements yaml.Unmarshaler, so secrets can be read from
// deployment config files.
func (s *String) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = New(raw)
	return nil
}
