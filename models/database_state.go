package models

import "time"

// DatabaseStatus enumerates the lifecycle states of the local vault database.
type DatabaseStatus int

const (
	// DatabaseUninitialized - no vault has been loaded yet.
	DatabaseUninitialized DatabaseStatus = iota

	// DatabaseLoading - the vault is being fetched and decrypted.
	DatabaseLoading

	// DatabaseCreating - the server holds no vault yet, a fresh database is
	// being bootstrapped locally.
	DatabaseCreating

	// DatabaseMergeRequired - multiple vault copies contend for the same
	// revision number and must be merged before any write is accepted.
	DatabaseMergeRequired

	// DatabaseMergeFailed - merging contending vault copies failed. The user
	// must re-authenticate to recover.
	DatabaseMergeFailed

	// DatabaseDecryptionFailed - the vault blob could not be decrypted with
	// the current key. No data is accessible until the user re-authenticates.
	DatabaseDecryptionFailed

	// DatabaseVaultVersionUnrecognized - the vault's schema revision is newer
	// than this client build understands. Fatal until the client is updated.
	DatabaseVaultVersionUnrecognized

	// DatabasePendingMigrations - the vault decrypted fine but its schema is
	// older than the latest known revision and must be upgraded.
	DatabasePendingMigrations

	// DatabaseReady - the vault is decrypted, migrated and usable.
	DatabaseReady

	// DatabaseSavingToServer - an encrypted snapshot is being uploaded.
	DatabaseSavingToServer
)

// String implements fmt.Stringer.
func (s DatabaseStatus) String() string {
	switch s {
	case DatabaseUninitialized:
		return "Uninitialized"
	case DatabaseLoading:
		return "Loading"
	case DatabaseCreating:
		return "Creating"
	case DatabaseMergeRequired:
		return "MergeRequired"
	case DatabaseMergeFailed:
		return "MergeFailed"
	case DatabaseDecryptionFailed:
		return "DecryptionFailed"
	case DatabaseVaultVersionUnrecognized:
		return "VaultVersionUnrecognized"
	case DatabasePendingMigrations:
		return "PendingMigrations"
	case DatabaseReady:
		return "Ready"
	case DatabaseSavingToServer:
		return "SavingToServer"
	default:
		return "Unknown"
	}
}

// DatabaseState is the observable state of the vault database: a status plus
// an optional human-readable message explaining error states.
type DatabaseState struct {
	Status      DatabaseStatus
	Message     string
	LastUpdated time.Time
}

// IsInitialized reports whether the database is usable by application code.
// SavingToServer counts as initialized: reads remain valid while an upload
// is in flight.
func (s DatabaseState) IsInitialized() bool {
	return s.Status == DatabaseReady || s.Status == DatabaseSavingToServer
}
