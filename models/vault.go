package models

import "time"

// Vault is the server-held unit of synchronization: one encrypted snapshot of
// a user's entire credential database plus the metadata the server needs to
// arbitrate concurrent writes.
//
// The server never sees the plaintext database. Blob carries the symmetric
// ciphertext of a portable SQLite snapshot, base64-encoded; everything else
// is bookkeeping that may be stored and inspected server-side.
type Vault struct {
	// Username of the vault owner. Sent back on upload as a sanity check so
	// the server can reject a vault posted against the wrong account.
	Username string `json:"username"`

	// Blob is the encrypted, base64-encoded database snapshot.
	Blob string `json:"blob"`

	// Version is the human-readable vault schema version, e.g. "1.5.0".
	Version string `json:"version"`

	// CurrentRevisionNumber is the server-assigned monotonic revision this
	// snapshot was derived from. The server compares it against its stored
	// value to detect conflicting writes.
	CurrentRevisionNumber int64 `json:"currentRevisionNumber"`

	// EncryptionPublicKey is the vault's primary public key. The server uses
	// it to encrypt per-record data (e.g. incoming email claims) that only
	// this vault should be able to read.
	EncryptionPublicKey string `json:"encryptionPublicKey"`

	// CredentialsCount is the number of live (non-deleted) credentials,
	// exposed for server-side quota and statistics purposes only.
	CredentialsCount int `json:"credentialsCount"`

	// EmailAddressList contains the private-domain email addresses used by
	// this vault's aliases, so the server can register claims for them.
	EmailAddressList []string `json:"emailAddressList"`

	// PrivateEmailDomainList and PublicEmailDomainList are populated by the
	// server on download; the client sends them empty.
	PrivateEmailDomainList []string `json:"privateEmailDomainList"`
	PublicEmailDomainList  []string `json:"publicEmailDomainList"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
