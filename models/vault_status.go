package models

// VaultStatus is the server's verdict on a vault download or upload.
type VaultStatus int

const (
	// VaultStatusOk means the operation was accepted as-is.
	VaultStatusOk VaultStatus = iota

	// VaultStatusMergeRequired means multiple vault copies contend for the
	// same revision number and the client must merge them before any write
	// is accepted.
	VaultStatusMergeRequired

	// VaultStatusOutdated means the client's revision number is behind the
	// server's. The client must fetch and merge the newer server copy.
	VaultStatusOutdated
)

// String implements fmt.Stringer.
func (s VaultStatus) String() string {
	switch s {
	case VaultStatusOk:
		return "Ok"
	case VaultStatusMergeRequired:
		return "MergeRequired"
	case VaultStatusOutdated:
		return "Outdated"
	default:
		return "Unknown"
	}
}
