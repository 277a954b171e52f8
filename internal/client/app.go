package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/eversafe/go-vault-sync/internal/adapter"
	"github.com/eversafe/go-vault-sync/internal/config"
	"github.com/eversafe/go-vault-sync/internal/crypto"
	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/internal/service"
	"github.com/eversafe/go-vault-sync/internal/workers"
	"github.com/eversafe/go-vault-sync/models"
)

// Credential environment variables. Authentication against the server is
// performed out of band; the sync client only consumes its results.
const (
	// EnvAccessToken holds the bearer token for the vault server API.
	EnvAccessToken = "VAULT_ACCESS_TOKEN"
	// EnvMasterPassword holds the master password the vault key is derived
	// from.
	EnvMasterPassword = "VAULT_MASTER_PASSWORD"
	// EnvKDFSalt holds the base64-encoded key derivation salt issued by the
	// server during registration.
	EnvKDFSalt = "VAULT_KDF_SALT"
)

// finalFlushTimeout bounds the last save attempt during shutdown.
const finalFlushTimeout = 30 * time.Second

type App struct {
	services      *service.ClientServices
	serverAdapter adapter.VaultServerAdapter
	gateway       crypto.Gateway
	build         models.AppBuildInfo
	saveInterval  time.Duration
	log           *logger.Logger
}

func NewApp(services *service.ClientServices, serverAdapter adapter.VaultServerAdapter, gateway crypto.Gateway, cfg *config.ClientConfig, build models.AppBuildInfo, log *logger.Logger) (*App, error) {
	if services == nil || serverAdapter == nil || gateway == nil || cfg == nil {
		return nil, errors.New("client app requires services, adapter, gateway and config")
	}

	return &App{
		services:      services,
		serverAdapter: serverAdapter,
		gateway:       gateway,
		build:         build,
		saveInterval:  cfg.SaveInterval,
		log:           log,
	}, nil
}

// Run authenticates, loads the vault, starts the background save worker and
// blocks until ctx is cancelled. Unsaved changes are flushed once more during
// shutdown.
func (a *App) Run(ctx context.Context) error {
	a.log.Info().
		Str("version", a.build.BuildVersion()).
		Str("commit", a.build.BuildCommit()).
		Msg("vault sync client starting")

	key, err := a.credentialsFromEnv()
	if err != nil {
		return err
	}

	a.services.Vault.SetEncryptionKey(key)
	if err = a.services.Vault.InitializeVault(ctx); err != nil {
		return fmt.Errorf("initialize vault: %w", err)
	}

	jobs := workers.NewWorkers(&saveWorker{job: a.services.SaveJob, interval: a.saveInterval})
	jobs.Run(ctx)
	defer a.services.SaveJob.Stop()

	<-ctx.Done()
	a.log.Info().Msg("shutting down")

	if a.services.Vault.Dirty() {
		flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		if err = a.services.Vault.SaveToServer(flushCtx); err != nil {
			a.log.Err(err).Msg("final vault flush failed")
		}
	}

	return a.services.Vault.Close()
}

// credentialsFromEnv installs the API token on the adapter and derives the
// vault encryption key from the master password and salt.
func (a *App) credentialsFromEnv() ([]byte, error) {
	token := os.Getenv(EnvAccessToken)
	if token == "" {
		return nil, fmt.Errorf("%s is not set", EnvAccessToken)
	}
	a.serverAdapter.SetToken(token)

	password := os.Getenv(EnvMasterPassword)
	if password == "" {
		return nil, fmt.Errorf("%s is not set", EnvMasterPassword)
	}
	salt, err := base64.StdEncoding.DecodeString(os.Getenv(EnvKDFSalt))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", EnvKDFSalt, err)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%s is not set", EnvKDFSalt)
	}

	return a.gateway.DeriveVaultKey(password, salt), nil
}

// saveWorker adapts the periodic save job to the workers.Worker contract.
type saveWorker struct {
	job      service.VaultSaveJob
	interval time.Duration
}

func (w *saveWorker) Run(ctx context.Context) {
	w.job.Start(ctx, w.interval)
}
