package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lc/podcfg/internal/cfgdoc"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/units"
)

// Field names a setting whose literal shape depends on the directive that
// consumes it.
type Field uint8

const (
	FieldMessageArchiveRetention Field = iota
	FieldFileStorageRetention
	FieldFileSizeLimit
	FieldC2SRateLimit
	FieldS2SRateLimit
	FieldSettingsBackupInterval
	FieldUserDataBackupInterval
)

// Shape is how a unit value is written for a directive.
type Shape uint8

const (
	// ShapeSeconds writes a duration as an integer number of seconds.
	ShapeSeconds Shape = iota
	// ShapeISO8601 writes a duration as its quoted ISO-8601 form.
	ShapeISO8601
	// ShapeBytes writes a size as an integer number of bytes.
	ShapeBytes
	// ShapeRate writes a rate as a quoted mod_limits rate, e.g. "10kb/s".
	ShapeRate
)

// Encoding is how one field is written.
// Unlimited is the Lua text standing for "no bound"; empty when the
// directive has no such value.
type Encoding struct {
	Directive string
	Shape     Shape
	Unlimited string
}

// encodings is the one place mapping settings to directive literal shapes.
// The unbounded tokens differ per directive: mod_mam takes "never", while
// mod_http_file_share skips its expiry job for any negative value.
var encodings = map[Field]Encoding{
	FieldMessageArchiveRetention: {Directive: "archive_expires_after", Shape: ShapeSeconds, Unlimited: `"never"`},
	FieldFileStorageRetention:    {Directive: "http_file_share_expires_after", Shape: ShapeSeconds, Unlimited: "-1"},
	FieldFileSizeLimit:           {Directive: "http_file_share_size_limit", Shape: ShapeBytes},
	FieldC2SRateLimit:            {Directive: "c2s", Shape: ShapeRate},
	FieldS2SRateLimit:            {Directive: "s2sin", Shape: ShapeRate},
	FieldSettingsBackupInterval:  {Directive: "prose_settings_backup_interval", Shape: ShapeISO8601},
	FieldUserDataBackupInterval:  {Directive: "prose_user_data_backup_interval", Shape: ShapeISO8601},
}

// EncodingOf returns the encoding of f.
func EncodingOf(f Field) (Encoding, error) {
	enc, ok := encodings[f]
	if !ok {
		return Encoding{}, fmt.Errorf("dialect: no encoding for field %d", f)
	}
	return enc, nil
}

// encodeRetention writes a possibly unbounded retention for f.
func encodeRetention(f Field, r podconfig.Retention) (cfgdoc.Literal, error) {
	enc, err := EncodingOf(f)
	if err != nil {
		return cfgdoc.Literal{}, err
	}
	d, ok := r.Value()
	if !ok {
		if enc.Unlimited == "" {
			return cfgdoc.Literal{}, unencodable(enc.Directive, "directive has no unlimited value")
		}
		return cfgdoc.NewLiteral(enc.Unlimited), nil
	}
	return encodeDuration(enc, d.String(), d.Seconds())
}

// encodeInterval writes a bounded duration for f.
func encodeInterval(f Field, d podconfig.BackupInterval) (cfgdoc.Literal, error) {
	enc, err := EncodingOf(f)
	if err != nil {
		return cfgdoc.Literal{}, err
	}
	return encodeDuration(enc, d.String(), d.Seconds())
}

func encodeDuration(enc Encoding, iso string, seconds uint64) (cfgdoc.Literal, error) {
	switch enc.Shape {
	case ShapeSeconds:
		return Uint(enc.Directive, seconds)
	case ShapeISO8601:
		return String(enc.Directive, iso)
	default:
		return cfgdoc.Literal{}, unencodable(enc.Directive, "not a duration directive")
	}
}

// encodeSize writes a byte size for f.
func encodeSize(f Field, s units.ByteSize) (cfgdoc.Literal, error) {
	enc, err := EncodingOf(f)
	if err != nil {
		return cfgdoc.Literal{}, err
	}
	if enc.Shape != ShapeBytes {
		return cfgdoc.Literal{}, unencodable(enc.Directive, "not a size directive")
	}
	n, ok := s.Bytes()
	if !ok {
		return cfgdoc.Literal{}, unencodable(enc.Directive, "size out of range")
	}
	return Uint(enc.Directive, n)
}

// encodeRate writes a data rate for f. mod_limits matches the unit
// case-insensitively; it is written in lower case like its documentation.
func encodeRate(f Field, r units.DataRate) (cfgdoc.Literal, error) {
	enc, err := EncodingOf(f)
	if err != nil {
		return cfgdoc.Literal{}, err
	}
	if enc.Shape != ShapeRate {
		return cfgdoc.Literal{}, unencodable(enc.Directive, "not a rate directive")
	}
	return String(enc.Directive, strconv.FormatUint(r.Magnitude, 10)+strings.ToLower(r.Unit.Suffix()))
}

// tlsProtocol maps a minimum TLS version to a LuaSec protocol string.
func tlsProtocol(v podconfig.TLSVersion) (string, error) {
	switch v {
	case podconfig.TLS10:
		return "tlsv1+", nil
	case podconfig.TLS11:
		return "tlsv1_1+", nil
	case podconfig.TLS12:
		return "tlsv1_2+", nil
	case podconfig.TLS13:
		return "tlsv1_3+", nil
	default:
		return "", unencodable("ssl.protocol", "unknown TLS version")
	}
}

// cipherList maps a minimum cipher suite family to an OpenSSL cipher list.
func cipherList(c podconfig.CipherSuite) (string, error) {
	switch c {
	case podconfig.CipherLow:
		return "DEFAULT:!aNULL:!eNULL", nil
	case podconfig.CipherMedium:
		return "HIGH:MEDIUM:!aNULL:!MD5:!RC4:!3DES", nil
	case podconfig.CipherHigh:
		return "HIGH+kEECDH:HIGH+kEDH:!DSS:!ECDSA:!3DES:!aNULL:@STRENGTH", nil
	case podconfig.CipherVeryHigh:
		return "ECDHE+AESGCM:ECDHE+CHACHA20:!aNULL:!SHA1:@STRENGTH", nil
	default:
		return "", unencodable("ssl.ciphers", "unknown cipher suite")
	}
}
