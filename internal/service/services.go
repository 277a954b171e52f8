package service

import (
	"github.com/eversafe/go-vault-sync/internal/adapter"
	"github.com/eversafe/go-vault-sync/internal/config"
	"github.com/eversafe/go-vault-sync/internal/crypto"
	"github.com/eversafe/go-vault-sync/internal/logger"
)

// ClientServices bundles the vault client's service layer.
type ClientServices struct {
	Settings *SettingsService
	Vault    *VaultService
	SaveJob  VaultSaveJob
}

// NewClientServices wires the service layer together on top of the server
// adapter and the crypto gateway.
func NewClientServices(serverAdapter adapter.VaultServerAdapter, gateway crypto.Gateway, cfg config.ClientConfig, log *logger.Logger) (*ClientServices, error) {
	settings := NewSettingsService(cfg.PrivateEmailDomains, cfg.PublicEmailDomains)

	vault, err := NewVaultService(serverAdapter, gateway, settings, log)
	if err != nil {
		return nil, err
	}

	return &ClientServices{
		Settings: settings,
		Vault:    vault,
		SaveJob:  NewSaveJob(vault),
	}, nil
}
