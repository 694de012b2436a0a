// Package jid provides XMPP addresses of the form node@domain and the bare
// domains they live on.
//
// Values are validated on construction, so String always yields text that
// parses back to the same value and never needs escaping.
package jid

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/miekg/dns"
)

var (
	// ErrMissingSeparator is returned when an address has no '@'.
	ErrMissingSeparator = errors.New("missing '@' separator")
	// ErrInvalidNode is returned when the local part fails validation.
	ErrInvalidNode = errors.New("invalid node")
	// ErrInvalidDomain is returned when the domain part fails validation.
	ErrInvalidDomain = errors.New("invalid domain")
)

const (
	_separator   = '@'
	_maxNodeLen  = 1023
	_forbiddenIn = "\"&'/:<>@"
)

// ParseError describes an address that could not be parsed.
type ParseError struct {
	Kind  error
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// Domain is a validated, lower-case domain name.
type Domain struct {
	name string
}

// ParseDomain validates text as a domain name. Upper-case ASCII is folded.
func ParseDomain(text string) (Domain, error) {
	name := strings.ToLower(text)
	if !validDomain(name) {
		return Domain{}, &ParseError{Kind: ErrInvalidDomain, Input: text}
	}
	return Domain{name: name}, nil
}

// MustDomain is like ParseDomain but panics on error.
func MustDomain(text string) Domain {
	d, err := ParseDomain(text)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the domain name.
func (d Domain) String() string { return d.name }

// IsZero reports whether d was never set.
func (d Domain) IsZero() bool { return d.name == "" }

// Sub returns the subdomain label.d, e.g. "upload.example.org".
func (d Domain) Sub(label string) (Domain, error) {
	return ParseDomain(label + "." + d.name)
}

// MarshalText implements encoding.TextMarshaler.
func (d Domain) MarshalText() ([]byte, error) { return []byte(d.name), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Domain) UnmarshalText(b []byte) error {
	v, err := ParseDomain(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// JID is a node@domain address.
type JID struct {
	node   string
	domain Domain
}

// New builds a JID from its parts.
func New(node string, domain Domain) (JID, error) {
	if !validNode(node) {
		return JID{}, &ParseError{Kind: ErrInvalidNode, Input: node}
	}
	if domain.IsZero() {
		return JID{}, &ParseError{Kind: ErrInvalidDomain, Input: ""}
	}
	return JID{node: node, domain: domain}, nil
}

// Parse splits text on its first '@' and validates both sides.
func Parse(text string) (JID, error) {
	i := strings.IndexByte(text, _separator)
	if i < 0 {
		return JID{}, &ParseError{Kind: ErrMissingSeparator, Input: text}
	}
	node, rest := text[:i], text[i+1:]
	if !validNode(node) {
		return JID{}, &ParseError{Kind: ErrInvalidNode, Input: text}
	}
	domain, err := ParseDomain(rest)
	if err != nil {
		return JID{}, &ParseError{Kind: ErrInvalidDomain, Input: text}
	}
	return JID{node: node, domain: domain}, nil
}

// Node returns the local part.
func (j JID) Node() string { return j.node }

// Domain returns the domain part.
func (j JID) Domain() Domain { return j.domain }

// String returns node@domain.
func (j JID) String() string {
	return j.node + string(_separator) + j.domain.name
}

// MarshalText implements encoding.TextMarshaler.
func (j JID) MarshalText() ([]byte, error) { return []byte(j.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *JID) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*j = v
	return nil
}

func validNode(node string) bool {
	if node == "" || len(node) > _maxNodeLen || !utf8.ValidString(node) {
		return false
	}
	for _, r := range node {
		if unicode.IsControl(r) || unicode.IsSpace(r) || strings.ContainsRune(_forbiddenIn, r) {
			return false
		}
	}
	return true
}

// validDomain accepts LDH labels only; dns.IsDomainName alone lets through
// escapes and arbitrary bytes that would not survive a config file.
func validDomain(name string) bool {
	if name == "" || strings.HasSuffix(name, ".") {
		return false
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
				return false
			}
		}
	}
	return true
}
