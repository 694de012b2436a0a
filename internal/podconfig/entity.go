// Package podconfig models the administrator-facing settings of an XMPP pod
// and resolves them against the compiled-in defaults.
//
// An Entity is always complete: it is produced either by Defaults or by
// Resolve, which layers the persisted Overrides over those defaults. Entities
// are values and are never modified after resolution; a settings change
// produces a new Entity.
package podconfig

import (
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/units"
)

// Retention is how long stored data is kept, possibly forever.
type Retention = units.InfiniteDuration

// BackupInterval is how often a backup is taken.
type BackupInterval = units.Duration[units.DateTimeLike]

// Entity is the resolved configuration of a pod. It is comparable, so two
// entities are equal exactly when every setting is equal.
type Entity struct {
	Domain jid.Domain `json:"domain"`

	MessageArchiveEnabled   bool      `json:"message_archive_enabled"`
	MessageArchiveRetention Retention `json:"message_archive_retention"`

	FileUploadAllowed           bool           `json:"file_upload_allowed"`
	FileStorageEncryptionScheme string         `json:"file_storage_encryption_scheme"`
	FileStorageRetention        Retention      `json:"file_storage_retention"`
	FileSizeLimit               units.ByteSize `json:"file_size_limit"`

	MFARequired    bool        `json:"mfa_required"`
	MinTLSVersion  TLSVersion  `json:"minimum_tls_version"`
	MinCipherSuite CipherSuite `json:"minimum_cipher_suite"`

	FederationEnabled bool           `json:"federation_enabled"`
	C2SRateLimit      units.DataRate `json:"c2s_rate_limit"`
	S2SRateLimit      units.DataRate `json:"s2s_rate_limit"`

	SettingsBackupInterval BackupInterval `json:"settings_backup_interval"`
	UserDataBackupInterval BackupInterval `json:"user_data_backup_interval"`
}
