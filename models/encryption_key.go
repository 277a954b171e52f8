package models

// EncryptionKey is one row of the vault's EncryptionKeys table: an asymmetric
// keypair used by the server to encrypt per-record data for this vault.
// Exactly one key is primary at any time; it is created lazily on the first
// save if absent.
type EncryptionKey struct {
	ID         string
	PublicKey  string
	PrivateKey string
	IsPrimary  bool
	CreatedAt  string
	UpdatedAt  string
	IsDeleted  bool
}
