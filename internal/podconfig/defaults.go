package podconfig

import (
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/units"
)

// Default values of the scalar settings. Unit-typed defaults live in Defaults.
const (
	// DefaultDomain is the XMPP domain served before an administrator picks one.
	DefaultDomain = "localhost"
	// DefaultEncryptionScheme is used for files stored by the upload component.
	DefaultEncryptionScheme = "AES-256"
	DefaultMessageArchive   = true
	DefaultFileUpload       = true
	DefaultMFARequired      = true
	DefaultFederation       = false
)

// Defaults returns the compiled default configuration. Every field is set
// here; adding a field to Entity without a default is a review error that
// TestDefaultsComplete catches.
func Defaults() Entity {
	return Entity{
		Domain: jid.MustDomain(DefaultDomain),

		MessageArchiveEnabled:   DefaultMessageArchive,
		MessageArchiveRetention: units.Finite(units.MustDuration[units.DateLike](1, units.Years)),

		FileUploadAllowed:           DefaultFileUpload,
		FileStorageEncryptionScheme: DefaultEncryptionScheme,
		FileStorageRetention:        units.Infinite[units.Duration[units.DateLike]](),
		FileSizeLimit:               units.NewByteSize(10, units.MebiBytes),

		MFARequired:    DefaultMFARequired,
		MinTLSVersion:  TLS12,
		MinCipherSuite: CipherHigh,

		FederationEnabled: DefaultFederation,
		C2SRateLimit:      units.NewDataRate(10, units.KiloBytesPerSec),
		S2SRateLimit:      units.NewDataRate(30, units.KiloBytesPerSec),

		SettingsBackupInterval: units.MustDuration[units.DateTimeLike](1, units.Days),
		UserDataBackupInterval: units.MustDuration[units.DateTimeLike](1, units.Weeks),
	}
}
