package dialect

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lc/podcfg/internal/cfgdoc"
	"github.com/lc/podcfg/internal/secret"
)

type LiteralTestSuite struct {
	suite.Suite
}

func (s *LiteralTestSuite) TestString() {
	testCases := []struct {
		name      string
		in        string
		expected  string
		expectErr bool
	}{
		{name: "plain", in: "AES-256", expected: `"AES-256"`},
		{name: "empty", in: "", expected: `""`},
		{name: "quote", in: `say "hi"`, expected: `"say \"hi\""`},
		{name: "backslash", in: `a\b`, expected: `"a\\b"`},
		{name: "unicode", in: "café", expected: `"café"`},
		{name: "newline", in: "a\nb", expectErr: true},
		{name: "nul", in: "a\x00b", expectErr: true},
		{name: "del", in: "a\x7fb", expectErr: true},
		{name: "invalid utf-8", in: "a\xffb", expectErr: true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			lit, err := String("name", tc.in)
			if tc.expectErr {
				s.ErrorIs(err, ErrUnencodable)
				var ue *UnencodableError
				s.Require().ErrorAs(err, &ue)
				s.Equal("name", ue.Key)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, lit.Text())
			s.False(lit.Sensitive())
		})
	}
}

func (s *LiteralTestSuite) TestSecretIsSensitive() {
	lit, err := Secret("component_secret", secret.New(`pa"ss`))
	s.Require().NoError(err)
	s.True(lit.Sensitive())
	s.Equal(`"pa\"ss"`, lit.Text())
	s.Equal(secret.Redacted, lit.String())
}

func (s *LiteralTestSuite) TestSecretErrorOmitsValue() {
	// Given a secret that cannot be written
	_, err := Secret("component_secret", secret.New("hunter2\n"))

	// Then the error names the key but not the value
	s.ErrorIs(err, ErrUnencodable)
	s.Contains(err.Error(), "component_secret")
	s.NotContains(err.Error(), "hunter2")
}

func (s *LiteralTestSuite) TestScalars() {
	s.Equal("true", Bool(true).Text())
	s.Equal("false", Bool(false).Text())
	s.Equal("-1", Int(-1).Text())

	n, err := Uint("http_file_share_size_limit", 10485760)
	s.Require().NoError(err)
	s.Equal("10485760", n.Text())

	_, err = Uint("http_file_share_size_limit", 1<<63)
	s.ErrorIs(err, ErrUnencodable)
}

func (s *LiteralTestSuite) TestList() {
	s.Equal("{}", List().Text())

	l, err := StringList("modules_enabled", "roster", "mam")
	s.Require().NoError(err)
	s.Equal(`{ "roster", "mam" }`, l.Text())

	_, err = StringList("modules_enabled", "ok", "bad\tname")
	s.ErrorIs(err, ErrUnencodable)

	// a single sensitive item taints the whole list
	sec, err := Secret("k", secret.New("x"))
	s.Require().NoError(err)
	s.True(List(cfgdoc.NewLiteral("1"), sec).Sensitive())
}

func (s *LiteralTestSuite) TestTable() {
	t, err := Table(
		Pair{Key: "protocol", Value: cfgdoc.NewLiteral(`"tlsv1_2+"`)},
		Pair{Key: "verify", Value: Bool(false)},
	)
	s.Require().NoError(err)
	s.Equal(`{ protocol = "tlsv1_2+"; verify = false }`, t.Text())

	empty, err := Table()
	s.Require().NoError(err)
	s.Equal("{}", empty.Text())

	_, err = Table(Pair{Key: "a", Value: Bool(true)}, Pair{Key: "a", Value: Bool(false)})
	s.ErrorIs(err, ErrUnencodable)

	_, err = Table(Pair{Key: "end", Value: Bool(true)})
	s.ErrorIs(err, ErrUnencodable)
}

func (s *LiteralTestSuite) TestIsIdentifier() {
	for _, ok := range []string{"ssl", "c2s", "_x", "s2sin", "A1"} {
		s.True(IsIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1a", "a-b", "a.b", "nil", "true", "é"} {
		s.False(IsIdentifier(bad), bad)
	}
}

func TestLiteralSuite(t *testing.T) {
	suite.Run(t, new(LiteralTestSuite))
}
