// Package cfgdoc holds a rendered server configuration as an ordered document
// and assembles it into the final file text.
//
// Sections and keys keep the order they were added in. Prosody reads its
// configuration top to bottom, and some directives (the TLS settings, the
// module lists) must come before the sections that rely on them.
package cfgdoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lc/podcfg/internal/secret"
)

var (
	// ErrDuplicateKey is returned when a key is set twice in one section.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrDuplicateSection is returned when two sections share a name.
	ErrDuplicateSection = errors.New("duplicate section")
)

// Literal is a value already encoded in the target dialect.
// Sensitive literals print as secret.Redacted; only Assemble writes their text.
type Literal struct {
	text      string
	sensitive bool
}

// NewLiteral wraps encoded text.
func NewLiteral(text string) Literal { return Literal{text: text} }

// NewSensitiveLiteral wraps encoded text that carries a secret.
func NewSensitiveLiteral(text string) Literal { return Literal{text: text, sensitive: true} }

// Sensitive reports whether the literal carries a secret.
func (l Literal) Sensitive() bool { return l.sensitive }

// String returns the encoded text, or the redaction marker for sensitive literals.
func (l Literal) String() string {
	if l.sensitive {
		return secret.Redacted
	}
	return l.text
}

// GoString keeps %#v from printing the text of sensitive literals.
func (l Literal) GoString() string {
	if l.sensitive {
		return "cfgdoc.Literal(" + secret.Redacted + ")"
	}
	return fmt.Sprintf("cfgdoc.Literal(%q)", l.text)
}

// Format applies verb to String, or to GoString for %#v.
func (l Literal) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		fmt.Fprint(f, l.GoString())
		return
	}
	fmt.Fprintf(f, fmt.FormatString(f, verb), l.String())
}

// Text returns the encoded text, secrets included. It is used to nest
// literals and to assemble the file; never log it.
func (l Literal) Text() string { return l.text }

// Entry is one key = value statement.
type Entry struct {
	Key   string
	Value Literal
}

// Section is an ordered list of statements with unique keys.
// Header is the encoded section line, empty for the global section.
type Section struct {
	Name    string
	Header  string
	entries []Entry
	index   map[string]struct{}
}

// NewSection returns an empty section.
func NewSection(name, header string) *Section {
	return &Section{Name: name, Header: header, index: make(map[string]struct{})}
}

// Set appends key = value. Setting a key twice is an error.
func (s *Section) Set(key string, value Literal) error {
	if _, ok := s.index[key]; ok {
		return fmt.Errorf("%w: %q in section %q", ErrDuplicateKey, key, s.Name)
	}
	s.index[key] = struct{}{}
	s.entries = append(s.entries, Entry{Key: key, Value: value})
	return nil
}

// Entries returns the statements in insertion order.
func (s *Section) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the value of key.
func (s *Section) Get(key string) (Literal, bool) {
	for _, e := range s.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Literal{}, false
}

// GoString lists the statements with sensitive values redacted.
func (s *Section) GoString() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "&cfgdoc.Section{Name:%q, Header:%q, entries:[", s.Name, s.Header)
	for i, e := range s.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%#v", e.Key, e.Value)
	}
	b.WriteString("]}")
	return b.String()
}

// Len returns the number of statements.
func (s *Section) Len() int { return len(s.entries) }

// Document is the global section followed by named sections.
type Document struct {
	global   *Section
	sections []*Section
	names    map[string]struct{}
}

// New returns an empty document.
func New() *Document {
	return &Document{
		global: NewSection("", ""),
		names:  make(map[string]struct{}),
	}
}

// Global returns the unnamed top-level section.
func (d *Document) Global() *Section { return d.global }

// AddSection appends a named section. Names must be unique.
func (d *Document) AddSection(sec *Section) error {
	if sec.Name == "" {
		return fmt.Errorf("%w: empty section name", ErrDuplicateSection)
	}
	if _, ok := d.names[sec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSection, sec.Name)
	}
	d.names[sec.Name] = struct{}{}
	d.sections = append(d.sections, sec)
	return nil
}

// Section returns the named section.
func (d *Document) Section(name string) (*Section, bool) {
	for _, s := range d.sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Sections returns the named sections in insertion order.
func (d *Document) Sections() []*Section {
	out := make([]*Section, len(d.sections))
	copy(out, d.sections)
	return out
}
