package podconfig

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/units"
)

// ErrInvalidSettings is returned by Resolve when any override fails to parse.
// The wrapped error lists one *FieldError per bad field.
var ErrInvalidSettings = errors.New("invalid settings")

// FieldError ties a parse failure to the setting it came from.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// FieldErrors returns the per-field failures carried by an error from Resolve.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case *FieldError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, c := range x.Unwrap() {
				walk(c)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}

// Resolve layers o over defaults: a field set in o wins, any other field
// keeps its default. If one override is invalid nothing is returned; every
// invalid field is reported, not just the first.
func Resolve(defaults Entity, o Overrides) (Entity, error) {
	e := defaults
	var errs error

	parse(&errs, "domain", o.Domain, jid.ParseDomain, &e.Domain)
	set(&e.MessageArchiveEnabled, o.MessageArchiveEnabled)
	parse(&errs, "message_archive_retention", o.MessageArchiveRetention, units.ParseRetention, &e.MessageArchiveRetention)
	set(&e.FileUploadAllowed, o.FileUploadAllowed)
	parse(&errs, "file_storage_encryption_scheme", o.FileStorageEncryptionScheme, parseScheme, &e.FileStorageEncryptionScheme)
	parse(&errs, "file_storage_retention", o.FileStorageRetention, units.ParseRetention, &e.FileStorageRetention)
	parse(&errs, "file_size_limit", o.FileSizeLimit, units.ParseByteSize, &e.FileSizeLimit)
	set(&e.MFARequired, o.MFARequired)
	parse(&errs, "minimum_tls_version", o.MinTLSVersion, ParseTLSVersion, &e.MinTLSVersion)
	parse(&errs, "minimum_cipher_suite", o.MinCipherSuite, ParseCipherSuite, &e.MinCipherSuite)
	set(&e.FederationEnabled, o.FederationEnabled)
	parse(&errs, "c2s_rate_limit", o.C2SRateLimit, units.ParseDataRate, &e.C2SRateLimit)
	parse(&errs, "s2s_rate_limit", o.S2SRateLimit, units.ParseDataRate, &e.S2SRateLimit)
	parse(&errs, "settings_backup_interval", o.SettingsBackupInterval, units.ParseDuration[units.DateTimeLike], &e.SettingsBackupInterval)
	parse(&errs, "user_data_backup_interval", o.UserDataBackupInterval, units.ParseDuration[units.DateTimeLike], &e.UserDataBackupInterval)

	if errs != nil {
		log.Debug("podconfig: settings rejected", "errors", len(multierr.Errors(errs)))
		return Entity{}, fmt.Errorf("%w: %w", ErrInvalidSettings, errs)
	}
	log.Debug("podconfig: settings resolved", "domain", e.Domain.String())
	return e, nil
}

// ResolveDefaults is Resolve against the compiled defaults.
func ResolveDefaults(o Overrides) (Entity, error) {
	return Resolve(Defaults(), o)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func parse[T any](errs *error, field string, raw *string, fn func(string) (T, error), dst *T) {
	if raw == nil {
		return
	}
	v, err := fn(*raw)
	if err != nil {
		*errs = multierr.Append(*errs, &FieldError{Field: field, Err: err})
		return
	}
	*dst = v
}

func parseScheme(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty encryption scheme", ErrInvalidValue)
	}
	return text, nil
}
