// Package adapter provides the transport layer for communicating with the
// vault server.
//
// The primary abstraction is [VaultServerAdapter], which decouples the vault
// service from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPVaultAdapter]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling.
package adapter

import (
	"context"

	"github.com/eversafe/go-vault-sync/models"
)

// VaultServerAdapter defines transport-agnostic communication with the vault
// server. Implementations are responsible for serialization, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
//
// All methods are free of side effects beyond the network call itself: a
// failed call leaves no partial state anywhere.
type VaultServerAdapter interface {
	// SetToken stores the bearer token attached to all subsequent requests.
	// The auth layer (an external collaborator) supplies and refreshes it.
	SetToken(token string)

	// Token returns the stored bearer token, or "" when none is set.
	Token() string

	// TokenUsername extracts the username from the stored token's subject
	// claim without verifying the signature. Used purely as a local sanity
	// check; the server validates the token itself.
	TokenUsername() (string, error)

	// GetVault fetches the latest accepted vault copy. A MergeRequired
	// status means contending copies exist and must be fetched via
	// GetMergeCandidates instead.
	GetVault(ctx context.Context) (models.VaultGetResponse, error)

	// GetMergeCandidates fetches every vault copy contending with the given
	// revision number.
	GetMergeCandidates(ctx context.Context, currentRevision int64) ([]models.Vault, error)

	// SaveVault uploads an encrypted vault snapshot. The response status
	// reports whether the write was accepted or a merge must happen first.
	SaveVault(ctx context.Context, vault models.Vault) (models.VaultSaveResponse, error)
}
