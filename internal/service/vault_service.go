// Package service contains the vault orchestration layer: the state machine
// owning the active vault store, the save/load/merge flows and the
// supporting settings and background-save services.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eversafe/go-vault-sync/internal/adapter"
	"github.com/eversafe/go-vault-sync/internal/crypto"
	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/internal/store"
	"github.com/eversafe/go-vault-sync/migrations"
	"github.com/eversafe/go-vault-sync/models"
)

const (
	// tombstoneRetention is how long soft-deleted rows survive before the
	// cleanup pass removes them for good. Long enough for every client of
	// the account to observe the deletion through a merge.
	tombstoneRetention = 7 * 24 * time.Hour

	// maxInitRetries bounds how often Store re-attempts initialization
	// before giving up.
	maxInitRetries = 5

	// maxMergeAttempts bounds the merge/save loop when the server keeps
	// reporting new contending revisions while we try to upload the merged
	// result.
	maxMergeAttempts = 3
)

// errMergeRetry signals that the merged vault was superseded on the server
// before our upload landed, and the merge pass must run again.
var errMergeRetry = errors.New("merged vault superseded by newer server revision")

const mergeFailedMessage = "Unable to save changes: your vault has been updated elsewhere " +
	"and the automatic merge was unsuccessful. Please log out and log back in " +
	"to retrieve the latest version of your vault."

// VaultService is the vault state machine: the sole owner of the active
// vault store and the only component the UI layer observes.
//
// All operations are serialized through one mutex; the engine is strictly
// single-writer. Network, crypto and store access all happen under the lock,
// mirroring the one-active-operation model of the sync protocol.
type VaultService struct {
	adapter  adapter.VaultServerAdapter
	gateway  crypto.Gateway
	settings *SettingsService
	log      *logger.Logger
	state    *StateTracker

	mu            sync.Mutex
	store         *store.VaultStore
	encryptionKey []byte
	username      string
	revision      int64
	initialized   bool
	retryCount    int
	dirty         bool
}

// NewVaultService creates the state machine with a fresh, empty in-memory
// store and the Uninitialized status.
func NewVaultService(serverAdapter adapter.VaultServerAdapter, gateway crypto.Gateway, settings *SettingsService, log *logger.Logger) (*VaultService, error) {
	st, err := store.OpenVaultStore(log)
	if err != nil {
		return nil, fmt.Errorf("open vault store: %w", err)
	}

	return &VaultService{
		adapter:  serverAdapter,
		gateway:  gateway,
		settings: settings,
		log:      log,
		state:    NewStateTracker(),
		store:    st,
	}, nil
}

// State exposes the observable database state for UI subscription.
func (s *VaultService) State() *StateTracker {
	return s.state
}

// Settings exposes the settings view backed by the active store.
func (s *VaultService) Settings() *SettingsService {
	return s.settings
}

// SetEncryptionKey installs the symmetric vault key derived by the auth
// collaborator. Initialization is a no-op until a key is present.
func (s *VaultService) SetEncryptionKey(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryptionKey = key
}

// Revision returns the vault revision number this client believes is current.
func (s *VaultService) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// MarkDirty records that the vault has unsaved local mutations; the save job
// flushes it on its next tick.
func (s *VaultService) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// Dirty reports whether unsaved local mutations exist.
func (s *VaultService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Close disposes the active store. The decrypted vault is gone afterwards;
// used on lock/logout.
func (s *VaultService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	s.encryptionKey = nil
	s.state.Update(models.DatabaseUninitialized)
	return s.store.Close()
}

// InitializeVault loads the vault from the server, creating, merging or
// migrating as the server's response dictates. Without an encryption key it
// does nothing and returns nil: the caller simply retries after login.
func (s *VaultService) InitializeVault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

// Store returns the active vault store, retrying initialization a bounded
// number of times if it has not succeeded yet.
func (s *VaultService) Store(ctx context.Context) (*store.VaultStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.initialized && s.retryCount < maxInitRetries {
		s.retryCount++
		if err := s.initializeLocked(ctx); err != nil {
			s.log.Err(err).Int("attempt", s.retryCount).Msg("vault initialization retry failed")
		}
	}
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	return s.store, nil
}

// SaveToServer encrypts the active store and uploads it. A MergeRequired or
// Outdated response is not a failure: it re-enters the merge path.
func (s *VaultService) SaveToServer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// MergeVaults fetches all contending vault copies, merges them into the
// active vault and uploads the result. On any failure the previously-active
// store is left untouched and the state becomes MergeFailed.
func (s *VaultService) MergeVaults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(ctx)
}

func (s *VaultService) initializeLocked(ctx context.Context) error {
	if len(s.encryptionKey) == 0 {
		return nil
	}

	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	s.retryCount = 0
	return nil
}

func (s *VaultService) loadLocked(ctx context.Context) error {
	s.state.Update(models.DatabaseLoading)
	s.log.Info().Msg("loading vault from server")

	resp, err := s.adapter.GetVault(ctx)
	if err != nil {
		s.log.Err(err).Msg("error loading vault from server")
		s.state.UpdateWithMessage(models.DatabaseUninitialized, "Loading vault from server failed.")
		return fmt.Errorf("load vault: %w", err)
	}

	if resp.Status == models.VaultStatusMergeRequired {
		s.state.Update(models.DatabaseMergeRequired)
		return s.mergeLocked(ctx)
	}
	if resp.Vault == nil {
		s.state.UpdateWithMessage(models.DatabaseUninitialized, "Server returned no vault.")
		return fmt.Errorf("load vault: %w", adapter.ErrEmptyResponse)
	}

	vault := *resp.Vault
	s.revision = vault.CurrentRevisionNumber
	s.username = vault.Username

	// A brand-new account has no blob yet; bootstrap a fresh database.
	if vault.Blob == "" {
		s.state.Update(models.DatabaseCreating)
		return s.createLocked(ctx)
	}

	if err = s.importBlobLocked(ctx, s.store, vault.Blob); err != nil {
		s.log.Err(err).Msg("error decrypting vault")
		s.state.UpdateWithMessage(models.DatabaseDecryptionFailed, "Vault could not be decrypted with the current key.")
		return err
	}

	needsSave, err := s.checkMigrationsLocked()
	if err != nil {
		return err
	}

	purged, err := s.store.PurgeExpiredTombstones(ctx, tombstoneRetention)
	if err != nil {
		s.state.UpdateWithMessage(models.DatabaseUninitialized, "Vault cleanup failed.")
		return fmt.Errorf("purge tombstones: %w", err)
	}
	if purged > 0 {
		s.log.Info().Int64("rows", purged).Msg("purged expired soft-deleted records")
	}

	if err = s.settings.Initialize(ctx, s.store); err != nil {
		s.state.UpdateWithMessage(models.DatabaseUninitialized, "Vault settings could not be read.")
		return fmt.Errorf("initialize settings: %w", err)
	}
	s.initialized = true

	// A purge or migration changed the vault; the new shape must land on the
	// server before the load counts as durable.
	if needsSave || purged > 0 {
		if err = s.saveLocked(ctx); err != nil {
			return fmt.Errorf("save vault after load: %w", err)
		}
	}

	s.state.Update(models.DatabaseReady)
	s.log.Info().Int64("revision", s.revision).Msg("vault loaded")
	return nil
}

// checkMigrationsLocked verifies the imported vault's schema revision against
// the catalog and upgrades it when behind. Returns true when the schema
// changed and the vault must be re-saved.
func (s *VaultService) checkMigrationsLocked() (bool, error) {
	current, err := migrations.CurrentRevision(s.store.DB())
	if err != nil {
		s.state.UpdateWithMessage(models.DatabaseVaultVersionUnrecognized, "Vault schema version could not be determined.")
		return false, fmt.Errorf("read vault revision: %w", err)
	}

	if _, ok := migrations.VersionForRevision(current); !ok {
		// The vault was written by a newer client build. Migrating blind
		// could destroy data; fail closed until this client is updated.
		s.state.UpdateWithMessage(models.DatabaseVaultVersionUnrecognized,
			fmt.Sprintf("Vault schema revision %d is not supported by this client.", current))
		return false, fmt.Errorf("revision %d: %w", current, migrations.ErrUnknownVersion)
	}

	latest := migrations.LatestRevision()
	if current >= latest {
		return false, nil
	}

	s.state.Update(models.DatabasePendingMigrations)
	s.log.Info().Int64("from", current).Int64("to", latest).Msg("upgrading vault schema")

	if err = migrations.Upgrade(s.store.DB(), latest); err != nil {
		s.state.UpdateWithMessage(models.DatabaseVaultVersionUnrecognized, "Vault schema upgrade failed.")
		return false, fmt.Errorf("upgrade vault: %w", err)
	}
	s.store.InvalidateDescriptors()

	return true, nil
}

func (s *VaultService) createLocked(ctx context.Context) error {
	if err := migrations.CreateNewVault(s.store.DB()); err != nil {
		s.state.UpdateWithMessage(models.DatabaseUninitialized, "Creating a new vault failed.")
		return fmt.Errorf("create new vault: %w", err)
	}
	s.store.InvalidateDescriptors()

	if err := s.settings.Initialize(ctx, s.store); err != nil {
		s.state.UpdateWithMessage(models.DatabaseUninitialized, "Vault settings could not be read.")
		return fmt.Errorf("initialize settings: %w", err)
	}
	s.initialized = true

	if err := s.saveLocked(ctx); err != nil {
		return fmt.Errorf("save new vault: %w", err)
	}

	s.log.Info().Msg("new vault created")
	return nil
}

func (s *VaultService) saveLocked(ctx context.Context) error {
	if s.state.Current().Status != models.DatabaseCreating {
		s.state.Update(models.DatabaseSavingToServer)
	}

	vault, err := s.prepareUploadLocked(ctx, s.store, s.revision)
	if err != nil {
		s.state.UpdateWithMessage(models.DatabaseReady, "Vault could not be prepared for upload.")
		return err
	}

	resp, err := s.adapter.SaveVault(ctx, vault)
	if err != nil {
		s.log.Err(err).Msg("error saving vault to server")
		s.state.UpdateWithMessage(models.DatabaseReady, "Saving vault to server failed.")
		return fmt.Errorf("save vault: %w", err)
	}

	switch resp.Status {
	case models.VaultStatusOk:
		s.revision = resp.NewRevisionNumber
		s.dirty = false
		s.state.Update(models.DatabaseReady)
		s.log.Info().Int64("revision", s.revision).Msg("vault saved to server")
		return nil

	case models.VaultStatusMergeRequired, models.VaultStatusOutdated:
		// Not an error: another client won the race, merge and retry.
		s.state.Update(models.DatabaseMergeRequired)
		return s.mergeLocked(ctx)

	default:
		s.state.UpdateWithMessage(models.DatabaseReady, "Server rejected the vault upload.")
		return fmt.Errorf("save vault: %w: status %s", ErrSaveRejected, resp.Status)
	}
}

func (s *VaultService) mergeLocked(ctx context.Context) error {
	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		err := s.mergeOnceLocked(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, errMergeRetry) {
			s.log.Warn().Int("attempt", attempt).Msg("merged vault superseded, re-merging")
			continue
		}

		s.log.Err(err).Msg("error merging vaults")
		s.state.UpdateWithMessage(models.DatabaseMergeFailed, mergeFailedMessage)
		return err
	}

	s.state.UpdateWithMessage(models.DatabaseMergeFailed, mergeFailedMessage)
	return fmt.Errorf("merge attempts exhausted after %d tries", maxMergeAttempts)
}

// mergeOnceLocked runs one full merge pass: fetch candidates, decrypt each
// into its own disposable store, merge everything into a scratch copy of the
// active store, and upload the result. The active store is swapped only
// after the server accepts the upload, so any failure leaves it untouched.
func (s *VaultService) mergeOnceLocked(ctx context.Context) error {
	vaults, err := s.adapter.GetMergeCandidates(ctx, s.revision)
	if err != nil {
		return fmt.Errorf("fetch merge candidates: %w", err)
	}
	if len(vaults) == 0 {
		return ErrNoMergeCandidates
	}
	s.log.Info().Int("candidates", len(vaults)).Msg("merging vaults")

	scratch, err := store.OpenVaultStore(s.log)
	if err != nil {
		return fmt.Errorf("open scratch store: %w", err)
	}
	merged := false
	defer func() {
		if !merged {
			scratch.Close()
		}
	}()

	if s.initialized {
		snapshot, err := s.store.ExportSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("snapshot active vault: %w", err)
		}
		if err = scratch.ImportSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("import active vault into scratch store: %w", err)
		}
	} else {
		// Initial load ran straight into contention, so there is no usable
		// local copy yet. The newest candidate becomes the merge base; merging
		// it with itself below is harmless.
		newest := vaults[0]
		for _, v := range vaults[1:] {
			if v.CurrentRevisionNumber > newest.CurrentRevisionNumber {
				newest = v
			}
		}
		if err = s.importBlobLocked(ctx, scratch, newest.Blob); err != nil {
			return fmt.Errorf("decrypt merge base: %w", err)
		}
	}

	candidates := make([]*store.VaultStore, 0, len(vaults))
	defer func() {
		for _, c := range candidates {
			c.Close()
		}
	}()

	var maxRevision int64
	for _, vault := range vaults {
		// Username of the contending copy is authoritative for the account;
		// keep it for the upload sanity check.
		s.username = vault.Username

		cand, err := store.OpenVaultStore(s.log)
		if err != nil {
			return fmt.Errorf("open candidate store: %w", err)
		}
		candidates = append(candidates, cand)

		if err = s.importBlobLocked(ctx, cand, vault.Blob); err != nil {
			return fmt.Errorf("decrypt merge candidate: %w", err)
		}
		if vault.CurrentRevisionNumber > maxRevision {
			maxRevision = vault.CurrentRevisionNumber
		}
	}

	if err = store.Merge(ctx, scratch, candidates...); err != nil {
		return err
	}

	vault, err := s.prepareUploadLocked(ctx, scratch, maxRevision)
	if err != nil {
		return err
	}
	resp, err := s.adapter.SaveVault(ctx, vault)
	if err != nil {
		return fmt.Errorf("save merged vault: %w", err)
	}

	switch resp.Status {
	case models.VaultStatusOk:
		old := s.store
		s.store = scratch
		merged = true
		old.Close()

		s.revision = resp.NewRevisionNumber
		s.dirty = false
		if err = s.settings.Initialize(ctx, s.store); err != nil {
			return fmt.Errorf("initialize settings after merge: %w", err)
		}
		s.initialized = true
		s.state.Update(models.DatabaseReady)
		s.log.Info().Int64("revision", s.revision).Msg("vaults merged and saved")
		return nil

	default:
		// The server learned about yet another revision while we merged.
		// Start over from the contested revision the server reported against.
		s.revision = maxRevision
		return errMergeRetry
	}
}

// importBlobLocked decrypts an encrypted vault blob and imports the
// resulting snapshot into st.
func (s *VaultService) importBlobLocked(ctx context.Context, st *store.VaultStore, blob string) error {
	plaintext, err := s.gateway.SymmetricDecrypt(blob, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("decrypt vault blob: %w", err)
	}

	snapshot, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil {
		return fmt.Errorf("%w: decode vault snapshot: %w", crypto.ErrDecryptionFailed, err)
	}

	if err = st.ImportSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: import vault snapshot: %w", crypto.ErrDecryptionFailed, err)
	}

	return nil
}

// prepareUploadLocked ensures the primary keypair exists, exports and
// encrypts st, and assembles the vault record for upload under the given
// revision number.
func (s *VaultService) prepareUploadLocked(ctx context.Context, st *store.VaultStore, revision int64) (models.Vault, error) {
	key, found, err := st.PrimaryEncryptionKey(ctx)
	if err != nil {
		return models.Vault{}, err
	}
	if !found {
		public, private, err := s.gateway.GenerateKeyPair()
		if err != nil {
			return models.Vault{}, fmt.Errorf("generate vault keypair: %w", err)
		}
		key, err = st.InsertEncryptionKey(ctx, models.EncryptionKey{
			PublicKey:  public,
			PrivateKey: private,
			IsPrimary:  true,
		})
		if err != nil {
			return models.Vault{}, err
		}
		s.log.Info().Msg("created primary vault keypair")
	}

	snapshot, err := st.ExportSnapshot(ctx)
	if err != nil {
		return models.Vault{}, fmt.Errorf("export vault snapshot: %w", err)
	}
	blob, err := s.gateway.SymmetricEncrypt(base64.StdEncoding.EncodeToString(snapshot), s.encryptionKey)
	if err != nil {
		return models.Vault{}, fmt.Errorf("encrypt vault snapshot: %w", err)
	}

	current, err := migrations.CurrentRevision(st.DB())
	if err != nil {
		return models.Vault{}, fmt.Errorf("read vault revision: %w", err)
	}
	version := "Unknown"
	if v, ok := migrations.VersionForRevision(current); ok {
		version = v.Version
	}

	count, err := st.CredentialsCount(ctx)
	if err != nil {
		return models.Vault{}, err
	}
	claims, err := s.emailClaimsLocked(ctx, st)
	if err != nil {
		return models.Vault{}, err
	}

	if s.username == "" {
		if username, err := s.adapter.TokenUsername(); err == nil {
			s.username = username
		}
	}

	now := time.Now().UTC()
	return models.Vault{
		Username:               s.username,
		Blob:                   blob,
		Version:                version,
		CurrentRevisionNumber:  revision,
		EncryptionPublicKey:    key.PublicKey,
		CredentialsCount:       count,
		EmailAddressList:       claims,
		PrivateEmailDomainList: []string{},
		PublicEmailDomainList:  []string{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// emailClaimsLocked lists the alias email addresses eligible for server-side
// claims: distinct, live, and within a supported private email domain.
func (s *VaultService) emailClaimsLocked(ctx context.Context, st *store.VaultStore) ([]string, error) {
	emails, err := st.EmailAddresses(ctx)
	if err != nil {
		return nil, err
	}

	domains := s.settings.PrivateEmailDomains()
	claims := make([]string, 0, len(emails))
	for _, email := range emails {
		for _, domain := range domains {
			if strings.HasSuffix(email, "@"+domain) {
				claims = append(claims, email)
				break
			}
		}
	}

	return claims, nil
}
