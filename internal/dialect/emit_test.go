package dialect

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/secret"
	"github.com/lc/podcfg/internal/units"
)

const expectedFixture = `-- Generated by podcfg. Local changes are overwritten on the next settings update.

admins = { "admin@example.org" }
ssl = { protocol = "tlsv1_2+"; ciphers = "HIGH+kEECDH:HIGH+kEDH:!DSS:!ECDSA:!3DES:!aNULL:@STRENGTH" }
c2s_require_encryption = true
s2s_require_encryption = true
modules_enabled = { "roster", "tls", "mam", "limits" }
modules_disabled = { "s2s" }
default_archive_policy = true
archive_expires_after = 31536000
limits = { c2s = { rate = "10kb/s" }; s2sin = { rate = "30kb/s" } }
prose_mfa_required = true
prose_federation_enabled = false
prose_settings_backup_interval = "P1D"
prose_user_data_backup_interval = "P1W"

VirtualHost "example.org"

Component "upload.example.org" "http_file_share"
	http_file_share_size_limit = 10485760
	http_file_share_expires_after = -1
	prose_file_storage_encryption = "AES-256"

Component "gateway.example.org"
	name = "Gateway"
	component_secret = "hunter2"
`

type EmitTestSuite struct {
	suite.Suite
	emitter *Emitter
	entity  podconfig.Entity
	static  Static
}

func (s *EmitTestSuite) SetupTest() {
	s.emitter = New(WithModules([]string{"roster", "tls"}))

	s.entity = podconfig.Defaults()
	s.entity.Domain = jid.MustDomain("example.org")

	admin, err := jid.Parse("admin@example.org")
	s.Require().NoError(err)
	s.static = Static{
		Admins: []jid.JID{admin},
		Components: []Component{{
			Domain: jid.MustDomain("gateway.example.org"),
			Name:   "Gateway",
			Secret: secret.New("hunter2"),
		}},
	}
}

func (s *EmitTestSuite) TestRenderFixture() {
	out, err := s.emitter.Render(s.entity, s.static)
	s.Require().NoError(err)
	s.Equal(expectedFixture, string(out))
}

func (s *EmitTestSuite) TestRenderIsDeterministic() {
	first, err := s.emitter.Render(s.entity, s.static)
	s.Require().NoError(err)
	for i := 0; i < 10; i++ {
		again, err := s.emitter.Render(s.entity, s.static)
		s.Require().NoError(err)
		s.Equal(first, again)
	}
}

func (s *EmitTestSuite) TestSecretsRedactedInLogs() {
	// Given a debug logger that records entries
	core, logs := observer.New(zap.DebugLevel)
	defer log.Use(zap.New(core))()

	// When a document with a component secret is emitted
	out, err := s.emitter.Render(s.entity, s.static)
	s.Require().NoError(err)

	// Then the file carries the secret but no log entry does
	s.Contains(string(out), `component_secret = "hunter2"`)

	found := false
	for _, entry := range logs.FilterMessage("dialect: directive encoded").All() {
		ctx := entry.ContextMap()
		s.NotContains(ctx["value"], "hunter2")
		if ctx["key"] == "component_secret" {
			found = true
			s.Equal(secret.Redacted, ctx["value"])
		}
	}
	s.True(found, "component_secret was not logged")
}

func (s *EmitTestSuite) TestRetentionEncodings() {
	testCases := []struct {
		name     string
		archive  podconfig.Retention
		files    podconfig.Retention
		expected []string
	}{
		{
			name:    "both unlimited",
			archive: units.Infinite[units.Duration[units.DateLike]](),
			files:   units.Infinite[units.Duration[units.DateLike]](),
			expected: []string{
				`archive_expires_after = "never"`,
				"http_file_share_expires_after = -1",
			},
		},
		{
			name:    "one year and thirty days",
			archive: units.Finite(units.MustDuration[units.DateLike](1, units.Years)),
			files:   units.Finite(units.MustDuration[units.DateLike](30, units.Days)),
			expected: []string{
				"archive_expires_after = 31536000",
				"http_file_share_expires_after = 2592000",
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			e := s.entity
			e.MessageArchiveRetention = tc.archive
			e.FileStorageRetention = tc.files

			out, err := s.emitter.Render(e, Static{})
			s.Require().NoError(err)
			for _, line := range tc.expected {
				s.Contains(string(out), line)
			}
		})
	}
}

func (s *EmitTestSuite) TestFederation() {
	// Given federation switched on
	e := s.entity
	e.FederationEnabled = true

	doc, err := s.emitter.Emit(e, Static{})
	s.Require().NoError(err)

	enabled, ok := doc.Global().Get("prose_federation_enabled")
	s.Require().True(ok)
	s.Equal("true", enabled.Text())
	disabled, _ := doc.Global().Get("modules_disabled")
	s.Equal("{}", disabled.Text())

	// And off again
	e.FederationEnabled = false
	doc, err = s.emitter.Emit(e, Static{})
	s.Require().NoError(err)
	enabled, _ = doc.Global().Get("prose_federation_enabled")
	s.Equal("false", enabled.Text())
}

func (s *EmitTestSuite) TestUploadDisabledDropsComponent() {
	e := s.entity
	e.FileUploadAllowed = false
	e.MessageArchiveEnabled = false

	doc, err := s.emitter.Emit(e, Static{})
	s.Require().NoError(err)

	_, ok := doc.Section("Component upload.example.org")
	s.False(ok)
	s.Len(doc.Sections(), 1)

	modules, _ := doc.Global().Get("modules_enabled")
	s.NotContains(modules.Text(), `"mam"`)
	policy, _ := doc.Global().Get("default_archive_policy")
	s.Equal("false", policy.Text())
}

func (s *EmitTestSuite) TestTLSAndCiphers() {
	e := s.entity
	e.MinTLSVersion = podconfig.TLS13
	e.MinCipherSuite = podconfig.CipherVeryHigh

	doc, err := s.emitter.Emit(e, Static{})
	s.Require().NoError(err)
	ssl, _ := doc.Global().Get("ssl")
	s.Equal(`{ protocol = "tlsv1_3+"; ciphers = "ECDHE+AESGCM:ECDHE+CHACHA20:!aNULL:!SHA1:@STRENGTH" }`, ssl.Text())
}

func (s *EmitTestSuite) TestUnencodableAbortsDocument() {
	testCases := []struct {
		name   string
		mutate func(*podconfig.Entity, *Static)
	}{
		{
			name: "control character in scheme",
			mutate: func(e *podconfig.Entity, _ *Static) {
				e.FileStorageEncryptionScheme = "AES\n256"
			},
		},
		{
			name: "control character in secret",
			mutate: func(_ *podconfig.Entity, st *Static) {
				st.Components[0].Secret = secret.New("hunter2\x00")
			},
		},
		{
			name: "component without domain",
			mutate: func(_ *podconfig.Entity, st *Static) {
				st.Components[0].Domain = jid.Domain{}
			},
		},
		{
			name: "entity without domain",
			mutate: func(e *podconfig.Entity, _ *Static) {
				*e = podconfig.Entity{}
			},
		},
		{
			name: "unknown tls version",
			mutate: func(e *podconfig.Entity, _ *Static) {
				e.MinTLSVersion = podconfig.TLSVersion(42)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			tc.mutate(&s.entity, &s.static)

			out, err := s.emitter.Render(s.entity, s.static)
			s.ErrorIs(err, ErrUnencodable)
			s.Nil(out)
			s.NotContains(err.Error(), "hunter2")
		})
	}
}

func (s *EmitTestSuite) TestEncodingTableCoversEveryField() {
	for f := FieldMessageArchiveRetention; f <= FieldUserDataBackupInterval; f++ {
		enc, err := EncodingOf(f)
		s.Require().NoError(err)
		s.True(IsIdentifier(enc.Directive), enc.Directive)
	}
	_, err := EncodingOf(Field(200))
	s.Error(err)
}

func TestEmitSuite(t *testing.T) {
	suite.Run(t, new(EmitTestSuite))
}
