// Package dialect encodes pod settings as Prosody configuration (Lua) and
// builds the ordered document the assembler writes out.
//
// The emitter is the only place a secret payload is read. Encoded secrets are
// carried as sensitive literals, which print redacted everywhere except in
// the assembled file.
package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lc/podcfg/internal/cfgdoc"
	"github.com/lc/podcfg/internal/secret"
)

// ErrUnencodable is returned for a value that cannot be written safely in
// the dialect. Emission stops; no partial document is produced.
var ErrUnencodable = errors.New("unencodable value")

// UnencodableError names the directive whose value was rejected. The value
// itself is never included, since it may be a secret.
type UnencodableError struct {
	Key    string
	Reason string
}

func (e *UnencodableError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrUnencodable, e.Key, e.Reason)
}

func (e *UnencodableError) Unwrap() error { return ErrUnencodable }

func unencodable(key, reason string) error {
	return &UnencodableError{Key: key, Reason: reason}
}

// Bool encodes a Lua boolean.
func Bool(b bool) cfgdoc.Literal {
	if b {
		return cfgdoc.NewLiteral("true")
	}
	return cfgdoc.NewLiteral("false")
}

// Int encodes a Lua integer.
func Int(n int64) cfgdoc.Literal {
	return cfgdoc.NewLiteral(strconv.FormatInt(n, 10))
}

// Uint encodes a non-negative Lua integer. Lua integers are signed 64-bit.
func Uint(key string, n uint64) (cfgdoc.Literal, error) {
	if n > 1<<63-1 {
		return cfgdoc.Literal{}, unencodable(key, "integer out of range")
	}
	return cfgdoc.NewLiteral(strconv.FormatUint(n, 10)), nil
}

// String encodes a double-quoted Lua string. Quotes and backslashes are
// escaped; control characters and invalid UTF-8 are rejected.
func String(key, s string) (cfgdoc.Literal, error) {
	q, err := quote(key, s)
	if err != nil {
		return cfgdoc.Literal{}, err
	}
	return cfgdoc.NewLiteral(q), nil
}

// Secret encodes a secret exactly like String, as a sensitive literal.
func Secret(key string, s secret.String) (cfgdoc.Literal, error) {
	q, err := quote(key, s.Expose())
	if err != nil {
		return cfgdoc.Literal{}, err
	}
	return cfgdoc.NewSensitiveLiteral(q), nil
}

func quote(key, s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", unencodable(key, "invalid UTF-8")
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case unicode.IsControl(r):
			return "", unencodable(key, "control character in string")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String(), nil
}

// List encodes a Lua sequence: { a, b }.
func List(items ...cfgdoc.Literal) cfgdoc.Literal {
	if len(items) == 0 {
		return cfgdoc.NewLiteral("{}")
	}
	parts := make([]string, len(items))
	sensitive := false
	for i, it := range items {
		parts[i] = it.Text()
		sensitive = sensitive || it.Sensitive()
	}
	return wrap("{ "+strings.Join(parts, ", ")+" }", sensitive)
}

// StringList encodes a sequence of strings.
func StringList(key string, items ...string) (cfgdoc.Literal, error) {
	lits := make([]cfgdoc.Literal, len(items))
	for i, it := range items {
		l, err := String(key, it)
		if err != nil {
			return cfgdoc.Literal{}, err
		}
		lits[i] = l
	}
	return List(lits...), nil
}

// Pair is one key = value pair of a Lua table.
type Pair struct {
	Key   string
	Value cfgdoc.Literal
}

// Table encodes a Lua table with identifier keys, in the given order:
// { a = 1; b = "x" }.
func Table(fields ...Pair) (cfgdoc.Literal, error) {
	if len(fields) == 0 {
		return cfgdoc.NewLiteral("{}"), nil
	}
	seen := make(map[string]struct{}, len(fields))
	parts := make([]string, len(fields))
	sensitive := false
	for i, f := range fields {
		if !IsIdentifier(f.Key) {
			return cfgdoc.Literal{}, unencodable(f.Key, "table key is not a Lua identifier")
		}
		if _, dup := seen[f.Key]; dup {
			return cfgdoc.Literal{}, unencodable(f.Key, "duplicate table key")
		}
		seen[f.Key] = struct{}{}
		parts[i] = f.Key + " = " + f.Value.Text()
		sensitive = sensitive || f.Value.Sensitive()
	}
	return wrap("{ "+strings.Join(parts, "; ")+" }", sensitive), nil
}

// IsIdentifier reports whether s can be used as a bare Lua name.
func IsIdentifier(s string) bool {
	if s == "" || luaKeywords[s] {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true, "end": true,
	"false": true, "for": true, "function": true, "goto": true, "if": true, "in": true,
	"local": true, "nil": true, "not": true, "or": true, "repeat": true, "return": true,
	"then": true, "true": true, "until": true, "while": true,
}

func wrap(s string, sensitive bool) cfgdoc.Literal {
	if sensitive {
		return cfgdoc.NewSensitiveLiteral(s)
	}
	return cfgdoc.NewLiteral(s)
}
