package models

// VaultVersion is one entry of the compiled-in vault schema catalog. It maps
// a migration revision number to the human-readable version string that is
// reported to the server alongside every uploaded vault.
type VaultVersion struct {
	// Revision is the ordinal of the schema migration, starting at 1.
	Revision int64

	// Version is the schema version string, e.g. "1.4.0".
	Version string

	// Description summarizes what the migration changed.
	Description string
}
