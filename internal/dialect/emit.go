package dialect

import (
	"fmt"

	"github.com/lc/podcfg/internal/cfgdoc"
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/secret"
)

// DefaultModules are enabled on every pod. mod_mam and mod_limits are added
// by the emitter according to the settings.
var DefaultModules = []string{
	"roster", "saslauth", "tls", "dialback", "disco", "carbons", "pep",
	"private", "blocklist", "vcard4", "vcard_legacy", "version", "uptime",
	"time", "ping", "register", "admin_adhoc", "smacks", "csi_simple",
}

// UploadSubdomain is where the file upload component is mounted.
const UploadSubdomain = "upload"

// Static is deployment configuration that does not come from pod settings.
type Static struct {
	Admins     []jid.JID
	Components []Component
}

// Component is an operator-defined component section, e.g. an external
// gateway that authenticates with a shared secret.
type Component struct {
	Domain jid.Domain
	Plugin string
	Name   string
	Secret secret.String
}

// Emitter turns a resolved Entity into a configuration document.
type Emitter struct {
	modules []string
}

// Opt configures an Emitter.
type Opt func(e *Emitter)

// WithModules replaces DefaultModules.
func WithModules(modules []string) Opt {
	return func(e *Emitter) {
		e.modules = modules
	}
}

// New returns an Emitter.
func New(opts ...Opt) *Emitter {
	e := &Emitter{modules: DefaultModules}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Render emits and assembles in one step.
func (em *Emitter) Render(e podconfig.Entity, st Static) ([]byte, error) {
	doc, err := em.Emit(e, st)
	if err != nil {
		return nil, err
	}
	return cfgdoc.Assemble(doc), nil
}

// Emit builds the document: global directives, the VirtualHost, the upload
// component when uploads are allowed, then st.Components in order. Any
// unencodable value aborts the whole document.
func (em *Emitter) Emit(e podconfig.Entity, st Static) (*cfgdoc.Document, error) {
	if e.Domain.IsZero() {
		return nil, unencodable("VirtualHost", "missing domain")
	}
	doc := cfgdoc.New()

	if err := em.global(doc.Global(), e, st); err != nil {
		return nil, err
	}

	vhost := cfgdoc.NewSection("VirtualHost "+e.Domain.String(), "")
	if err := header(vhost, "VirtualHost", e.Domain.String()); err != nil {
		return nil, err
	}
	if err := doc.AddSection(vhost); err != nil {
		return nil, err
	}

	if e.FileUploadAllowed {
		up, err := uploadComponent(e)
		if err != nil {
			return nil, err
		}
		if err := doc.AddSection(up); err != nil {
			return nil, err
		}
	}

	for _, c := range st.Components {
		sec, err := component(c)
		if err != nil {
			return nil, err
		}
		if err := doc.AddSection(sec); err != nil {
			return nil, err
		}
	}

	log.Debug("dialect: document emitted", "domain", e.Domain.String(), "sections", len(doc.Sections()))
	return doc, nil
}

func (em *Emitter) global(sec *cfgdoc.Section, e podconfig.Entity, st Static) error {
	w := writer{sec: sec}

	admins := make([]string, len(st.Admins))
	for i, a := range st.Admins {
		admins[i] = a.String()
	}
	w.put("admins", w.strings("admins", admins...))

	// TLS comes first; mod_tls and the s2s modules read it when they load.
	protocol, err := tlsProtocol(e.MinTLSVersion)
	w.fail(err)
	ciphers, err := cipherList(e.MinCipherSuite)
	w.fail(err)
	w.put("ssl", w.table(
		Pair{Key: "protocol", Value: w.str("ssl.protocol", protocol)},
		Pair{Key: "ciphers", Value: w.str("ssl.ciphers", ciphers)},
	))
	w.put("c2s_require_encryption", Bool(true))
	w.put("s2s_require_encryption", Bool(true))

	modules := append([]string(nil), em.modules...)
	if e.MessageArchiveEnabled {
		modules = append(modules, "mam")
	}
	modules = append(modules, "limits")
	w.put("modules_enabled", w.strings("modules_enabled", modules...))
	if e.FederationEnabled {
		w.put("modules_disabled", List())
	} else {
		w.put("modules_disabled", w.strings("modules_disabled", "s2s"))
	}

	w.put("default_archive_policy", Bool(e.MessageArchiveEnabled))
	w.put(directive(FieldMessageArchiveRetention), w.lit(encodeRetention(FieldMessageArchiveRetention, e.MessageArchiveRetention)))

	c2s := w.lit(encodeRate(FieldC2SRateLimit, e.C2SRateLimit))
	s2s := w.lit(encodeRate(FieldS2SRateLimit, e.S2SRateLimit))
	w.put("limits", w.table(
		Pair{Key: directive(FieldC2SRateLimit), Value: w.table(Pair{Key: "rate", Value: c2s})},
		Pair{Key: directive(FieldS2SRateLimit), Value: w.table(Pair{Key: "rate", Value: s2s})},
	))

	w.put("prose_mfa_required", Bool(e.MFARequired))
	w.put("prose_federation_enabled", Bool(e.FederationEnabled))
	w.put(directive(FieldSettingsBackupInterval), w.lit(encodeInterval(FieldSettingsBackupInterval, e.SettingsBackupInterval)))
	w.put(directive(FieldUserDataBackupInterval), w.lit(encodeInterval(FieldUserDataBackupInterval, e.UserDataBackupInterval)))
	return w.err
}

func uploadComponent(e podconfig.Entity) (*cfgdoc.Section, error) {
	domain, err := e.Domain.Sub(UploadSubdomain)
	if err != nil {
		return nil, err
	}
	sec := cfgdoc.NewSection("Component "+domain.String(), "")
	if err := header(sec, "Component", domain.String(), "http_file_share"); err != nil {
		return nil, err
	}
	w := writer{sec: sec}
	w.put(directive(FieldFileSizeLimit), w.lit(encodeSize(FieldFileSizeLimit, e.FileSizeLimit)))
	w.put(directive(FieldFileStorageRetention), w.lit(encodeRetention(FieldFileStorageRetention, e.FileStorageRetention)))
	w.put("prose_file_storage_encryption", w.str("prose_file_storage_encryption", e.FileStorageEncryptionScheme))
	return sec, w.err
}

func component(c Component) (*cfgdoc.Section, error) {
	if c.Domain.IsZero() {
		return nil, unencodable("Component", "missing component domain")
	}
	sec := cfgdoc.NewSection("Component "+c.Domain.String(), "")
	args := []string{c.Domain.String()}
	if c.Plugin != "" {
		args = append(args, c.Plugin)
	}
	if err := header(sec, "Component", args...); err != nil {
		return nil, err
	}
	w := writer{sec: sec}
	if c.Name != "" {
		w.put("name", w.str("name", c.Name))
	}
	if !c.Secret.IsZero() {
		w.put("component_secret", w.lit(Secret("component_secret", c.Secret)))
	}
	return sec, w.err
}

// header sets sec.Header to a section line such as
// Component "upload.example.org" "http_file_share".
func header(sec *cfgdoc.Section, keyword string, args ...string) error {
	h := keyword
	for _, a := range args {
		q, err := String(keyword, a)
		if err != nil {
			return err
		}
		h += " " + q.Text()
	}
	sec.Header = h
	return nil
}

// directive returns the directive name of f. The encodings table covers
// every Field constant, which the table test checks.
func directive(f Field) string {
	return encodings[f].Directive
}

// writer appends statements to a section and keeps the first error, so the
// emitting code reads as a flat list of directives.
type writer struct {
	sec *cfgdoc.Section
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *writer) lit(l cfgdoc.Literal, err error) cfgdoc.Literal {
	w.fail(err)
	return l
}

func (w *writer) str(key, s string) cfgdoc.Literal {
	return w.lit(String(key, s))
}

func (w *writer) strings(key string, items ...string) cfgdoc.Literal {
	return w.lit(StringList(key, items...))
}

func (w *writer) table(fields ...Pair) cfgdoc.Literal {
	return w.lit(Table(fields...))
}

func (w *writer) put(key string, value cfgdoc.Literal) {
	if w.err != nil {
		return
	}
	if !IsIdentifier(key) {
		w.err = unencodable(key, "directive is not a Lua identifier")
		return
	}
	if err := w.sec.Set(key, value); err != nil {
		w.err = fmt.Errorf("dialect: %w", err)
		return
	}
	log.Debug("dialect: directive encoded", "section", w.sec.Name, "key", key, "value", value)
}
