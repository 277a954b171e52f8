package migrations

import "github.com/eversafe/go-vault-sync/models"

// catalog maps every known schema revision to its human-readable vault
// version. The revision numbers correspond to the numeric prefixes of the
// embedded migration scripts; the version strings are what the server sees
// in the uploaded vault metadata.
//
// Order matters: entries are sorted ascending by revision and the last entry
// is the latest schema this client build understands.
var catalog = []models.VaultVersion{
	{Revision: 1, Version: "1.0.0", Description: "Initial vault schema"},
	{Revision: 2, Version: "1.1.0", Description: "Encryption keypair storage"},
	{Revision: 3, Version: "1.2.0", Description: "Key/value settings table"},
	{Revision: 4, Version: "1.4.0", Description: "Soft-delete tombstone columns"},
	{Revision: 5, Version: "1.4.1", Description: "Attachments table rename"},
	{Revision: 6, Version: "1.5.0", Description: "TOTP code storage"},
}

// Catalog returns a copy of the full vault version catalog.
func Catalog() []models.VaultVersion {
	out := make([]models.VaultVersion, len(catalog))
	copy(out, catalog)
	return out
}

// LatestRevision returns the highest schema revision this build can create
// or migrate to.
func LatestRevision() int64 {
	return catalog[len(catalog)-1].Revision
}

// LatestVersion returns the catalog entry for the latest known revision.
func LatestVersion() models.VaultVersion {
	return catalog[len(catalog)-1]
}

// VersionForRevision maps a revision number to its catalog entry. The second
// return value is false when the revision is unknown to this build, which is
// the fail-closed VaultVersionUnrecognized condition: the vault was produced
// by a newer client.
func VersionForRevision(revision int64) (models.VaultVersion, bool) {
	for _, v := range catalog {
		if v.Revision == revision {
			return v, true
		}
	}
	return models.VaultVersion{}, false
}
