package models

// VaultGetResponse is the body of GET /v1/Vault.
type VaultGetResponse struct {
	// Status is Ok when Vault holds the latest accepted copy, or
	// MergeRequired when the server already knows about contending copies.
	Status VaultStatus `json:"status"`

	// Vault is present when Status is Ok. A vault with an empty Blob means
	// the account is brand new and the client should bootstrap a fresh
	// database locally.
	Vault *Vault `json:"vault,omitempty"`
}

// VaultSaveResponse is the body of POST /v1/Vault.
type VaultSaveResponse struct {
	// Status reports whether the upload was accepted (Ok) or the client
	// must merge first (MergeRequired, Outdated).
	Status VaultStatus `json:"status"`

	// NewRevisionNumber is the revision the server assigned to the accepted
	// upload. Only meaningful when Status is Ok.
	NewRevisionNumber int64 `json:"newRevisionNumber"`
}

// VaultMergeResponse is the body of GET /v1/Vault/merge. It lists every vault
// copy that contends with the revision number supplied by the client.
type VaultMergeResponse struct {
	Vaults []Vault `json:"vaults"`
}
