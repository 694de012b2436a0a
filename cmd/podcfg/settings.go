package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/lc/podcfg/internal/config"
	"github.com/lc/podcfg/internal/dialect"
	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/store"
)

// render resolves the overrides stored at settingsPath and renders the
// server configuration the daemon would install.
func render(cfg *config.Config, settingsPath string) ([]byte, error) {
	rec, err := store.NewFileStore(filesys.OS(), settingsPath).Load()
	if err != nil {
		return nil, err
	}
	return renderOverrides(cfg, rec.Overrides)
}

func renderOverrides(cfg *config.Config, o podconfig.Overrides) ([]byte, error) {
	ent, err := podconfig.ResolveDefaults(o)
	if err != nil {
		return nil, err
	}
	st, err := cfg.Pod.StaticSections(ent.Domain)
	if err != nil {
		return nil, err
	}
	return dialect.New().Render(ent, st)
}

// checkResult is the outcome of checking one settings file.
type checkResult struct {
	Path string
	Err  error
}

// checkFiles renders every file concurrently. Results keep the order of paths.
func checkFiles(ctx context.Context, cfg *config.Config, paths []string) []checkResult {
	results := make([]checkResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = checkResult{Path: p, Err: err}
				return nil
			}
			_, err := render(cfg, p)
			results[i] = checkResult{Path: p, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// parseAssignments turns key=value arguments into an override patch. Values
// are taken as YAML scalars, so booleans are written true/false.
func parseAssignments(args []string) (podconfig.Overrides, error) {
	doc := make(map[string]any, len(args))
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return podconfig.Overrides{}, fmt.Errorf("expected key=value, got %q", a)
		}
		if _, dup := doc[key]; dup {
			return podconfig.Overrides{}, fmt.Errorf("%s set twice", key)
		}
		switch value {
		case "true":
			doc[key] = true
		case "false":
			doc[key] = false
		default:
			doc[key] = value
		}
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return podconfig.Overrides{}, err
	}
	var o podconfig.Overrides
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		return podconfig.Overrides{}, fmt.Errorf("invalid assignment: %w", err)
	}
	return o, nil
}

// settingRow is one line of the settings table.
type settingRow struct {
	Key        string
	Value      string
	Overridden bool
}

// settingRows lists e in a fixed order, flagging keys set in o.
func settingRows(e podconfig.Entity, o podconfig.Overrides) []settingRow {
	b := strconv.FormatBool
	return []settingRow{
		{"domain", e.Domain.String(), o.Domain != nil},
		{"message_archive_enabled", b(e.MessageArchiveEnabled), o.MessageArchiveEnabled != nil},
		{"message_archive_retention", e.MessageArchiveRetention.String(), o.MessageArchiveRetention != nil},
		{"file_upload_allowed", b(e.FileUploadAllowed), o.FileUploadAllowed != nil},
		{"file_storage_encryption_scheme", e.FileStorageEncryptionScheme, o.FileStorageEncryptionScheme != nil},
		{"file_storage_retention", e.FileStorageRetention.String(), o.FileStorageRetention != nil},
		{"file_size_limit", e.FileSizeLimit.String(), o.FileSizeLimit != nil},
		{"mfa_required", b(e.MFARequired), o.MFARequired != nil},
		{"minimum_tls_version", e.MinTLSVersion.String(), o.MinTLSVersion != nil},
		{"minimum_cipher_suite", e.MinCipherSuite.String(), o.MinCipherSuite != nil},
		{"federation_enabled", b(e.FederationEnabled), o.FederationEnabled != nil},
		{"c2s_rate_limit", e.C2SRateLimit.String(), o.C2SRateLimit != nil},
		{"s2s_rate_limit", e.S2SRateLimit.String(), o.S2SRateLimit != nil},
		{"settings_backup_interval", e.SettingsBackupInterval.String(), o.SettingsBackupInterval != nil},
		{"user_data_backup_interval", e.UserDataBackupInterval.String(), o.UserDataBackupInterval != nil},
	}
}

// describe flattens err into one line per rejected field.
func describe(err error) []string {
	fields := podconfig.FieldErrors(err)
	if len(fields) == 0 {
		return []string{err.Error()}
	}
	out := make([]string, len(fields))
	for i, fe := range fields {
		out[i] = fe.Error()
	}
	return out
}
