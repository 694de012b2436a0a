package podconfig

// Overrides is the partial settings record kept by the persistence layer.
// A nil field means "not set"; unit and identifier settings are stored as the
// text an administrator entered and are parsed during resolution.
type Overrides struct {
	Domain *string `yaml:"domain,omitempty" json:"domain,omitempty"`

	MessageArchiveEnabled   *bool   `yaml:"message_archive_enabled,omitempty" json:"message_archive_enabled,omitempty"`
	MessageArchiveRetention *string `yaml:"message_archive_retention,omitempty" json:"message_archive_retention,omitempty"`

	FileUploadAllowed           *bool   `yaml:"file_upload_allowed,omitempty" json:"file_upload_allowed,omitempty"`
	FileStorageEncryptionScheme *string `yaml:"file_storage_encryption_scheme,omitempty" json:"file_storage_encryption_scheme,omitempty"`
	FileStorageRetention        *string `yaml:"file_storage_retention,omitempty" json:"file_storage_retention,omitempty"`
	FileSizeLimit               *string `yaml:"file_size_limit,omitempty" json:"file_size_limit,omitempty"`

	MFARequired    *bool   `yaml:"mfa_required,omitempty" json:"mfa_required,omitempty"`
	MinTLSVersion  *string `yaml:"minimum_tls_version,omitempty" json:"minimum_tls_version,omitempty"`
	MinCipherSuite *string `yaml:"minimum_cipher_suite,omitempty" json:"minimum_cipher_suite,omitempty"`

	FederationEnabled *bool   `yaml:"federation_enabled,omitempty" json:"federation_enabled,omitempty"`
	C2SRateLimit      *string `yaml:"c2s_rate_limit,omitempty" json:"c2s_rate_limit,omitempty"`
	S2SRateLimit      *string `yaml:"s2s_rate_limit,omitempty" json:"s2s_rate_limit,omitempty"`

	SettingsBackupInterval *string `yaml:"settings_backup_interval,omitempty" json:"settings_backup_interval,omitempty"`
	UserDataBackupInterval *string `yaml:"user_data_backup_interval,omitempty" json:"user_data_backup_interval,omitempty"`
}

// Merge returns o with every field set in patch replaced by the patch value.
// Neither input is modified.
func (o Overrides) Merge(patch Overrides) Overrides {
	out := o
	pick(&out.Domain, patch.Domain)
	pick(&out.MessageArchiveEnabled, patch.MessageArchiveEnabled)
	pick(&out.MessageArchiveRetention, patch.MessageArchiveRetention)
	pick(&out.FileUploadAllowed, patch.FileUploadAllowed)
	pick(&out.FileStorageEncryptionScheme, patch.FileStorageEncryptionScheme)
	pick(&out.FileStorageRetention, patch.FileStorageRetention)
	pick(&out.FileSizeLimit, patch.FileSizeLimit)
	pick(&out.MFARequired, patch.MFARequired)
	pick(&out.MinTLSVersion, patch.MinTLSVersion)
	pick(&out.MinCipherSuite, patch.MinCipherSuite)
	pick(&out.FederationEnabled, patch.FederationEnabled)
	pick(&out.C2SRateLimit, patch.C2SRateLimit)
	pick(&out.S2SRateLimit, patch.S2SRateLimit)
	pick(&out.SettingsBackupInterval, patch.SettingsBackupInterval)
	pick(&out.UserDataBackupInterval, patch.UserDataBackupInterval)
	return out
}

// pick copies the patch value into a fresh pointer so the result shares no
// memory with either input.
func pick[T any](dst **T, patch *T) {
	if patch != nil {
		v := *patch
		*dst = &v
	} else if *dst != nil {
		v := **dst
		*dst = &v
	}
}

// Ptr returns a pointer to v. Handy when building Overrides by hand.
func Ptr[T any](v T) *T { return &v }
