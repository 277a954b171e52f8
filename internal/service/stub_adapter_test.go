package service

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eversafe/go-vault-sync/internal/crypto"
	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/internal/store"
	"github.com/eversafe/go-vault-sync/migrations"
	"github.com/eversafe/go-vault-sync/models"
)

// stubAdapter is a hand-rolled VaultServerAdapter with per-call hooks and
// call counters, standing in for the real HTTP transport.
type stubAdapter struct {
	mu    sync.Mutex
	token string

	getVaultFn  func() (models.VaultGetResponse, error)
	getMergeFn  func(currentRevision int64) ([]models.Vault, error)
	saveVaultFn func(vault models.Vault) (models.VaultSaveResponse, error)

	getCalls   int
	mergeCalls int
	saveCalls  int
	saved      []models.Vault
}

func (s *stubAdapter) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *stubAdapter) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubAdapter) TokenUsername() (string, error) {
	return "alice", nil
}

func (s *stubAdapter) GetVault(_ context.Context) (models.VaultGetResponse, error) {
	s.mu.Lock()
	s.getCalls++
	fn := s.getVaultFn
	s.mu.Unlock()
	return fn()
}

func (s *stubAdapter) GetMergeCandidates(_ context.Context, currentRevision int64) ([]models.Vault, error) {
	s.mu.Lock()
	s.mergeCalls++
	fn := s.getMergeFn
	s.mu.Unlock()
	return fn(currentRevision)
}

func (s *stubAdapter) SaveVault(_ context.Context, vault models.Vault) (models.VaultSaveResponse, error) {
	s.mu.Lock()
	s.saveCalls++
	s.saved = append(s.saved, vault)
	fn := s.saveVaultFn
	s.mu.Unlock()
	return fn(vault)
}

func (s *stubAdapter) lastSaved(t *testing.T) models.Vault {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.saved)
	return s.saved[len(s.saved)-1]
}

// acceptSaves makes the stub accept every upload, assigning revisions one
// past the uploaded one.
func acceptSaves() func(models.Vault) (models.VaultSaveResponse, error) {
	return func(vault models.Vault) (models.VaultSaveResponse, error) {
		return models.VaultSaveResponse{
			Status:            models.VaultStatusOk,
			NewRevisionNumber: vault.CurrentRevisionNumber + 1,
		}, nil
	}
}

var testVaultKey = func() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}()

func newTestService(t *testing.T, stub *stubAdapter) *VaultService {
	t.Helper()

	settings := NewSettingsService([]string{"mail.example.com"}, []string{"public.example.com"})
	svc, err := NewVaultService(stub, crypto.NewGateway(), settings, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	svc.SetEncryptionKey(testVaultKey)
	return svc
}

// buildVaultBlob creates a latest-schema vault, applies seed, and returns its
// encrypted snapshot the way the server would store it.
func buildVaultBlob(t *testing.T, seed func(t *testing.T, st *store.VaultStore)) string {
	t.Helper()

	st, err := store.OpenVaultStore(logger.Nop())
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, migrations.CreateNewVault(st.DB()))
	st.InvalidateDescriptors()

	if seed != nil {
		seed(t, st)
	}

	snapshot, err := st.ExportSnapshot(context.Background())
	require.NoError(t, err)

	blob, err := crypto.NewGateway().SymmetricEncrypt(
		base64.StdEncoding.EncodeToString(snapshot), testVaultKey)
	require.NoError(t, err)
	return blob
}

// seedCredential inserts a consistent alias/service/credential triple.
func seedCredential(t *testing.T, st *store.VaultStore, suffix, username, updatedAt string, deleted bool) {
	t.Helper()

	deletedInt := 0
	if deleted {
		deletedInt = 1
	}

	_, err := st.DB().Exec(`
		INSERT INTO "Aliases" ("Id", "BirthDate", "Email", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, '1990-01-01', ?, ?, ?, ?);`,
		"alias-"+suffix, "a"+suffix+"@mail.example.com", updatedAt, updatedAt, deletedInt)
	require.NoError(t, err)

	_, err = st.DB().Exec(`
		INSERT INTO "Services" ("Id", "Name", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, ?, ?, ?, 0);`,
		"svc-"+suffix, "Service "+suffix, updatedAt, updatedAt)
	require.NoError(t, err)

	_, err = st.DB().Exec(`
		INSERT INTO "Credentials" ("Id", "AliasId", "ServiceId", "Username", "CreatedAt", "UpdatedAt", "IsDeleted")
		VALUES (?, ?, ?, ?, ?, ?, ?);`,
		"cred-"+suffix, "alias-"+suffix, "svc-"+suffix, username, updatedAt, updatedAt, deletedInt)
	require.NoError(t, err)
}

func credentialUsernames(t *testing.T, st *store.VaultStore) []string {
	t.Helper()

	rows, err := st.DB().Query(`SELECT "Username" FROM "Credentials" ORDER BY "Username";`)
	require.NoError(t, err)
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		require.NoError(t, rows.Scan(&u))
		usernames = append(usernames, u)
	}
	require.NoError(t, rows.Err())
	return usernames
}

// decryptSavedVault opens the blob of an uploaded vault in a fresh store.
func decryptSavedVault(t *testing.T, vault models.Vault) *store.VaultStore {
	t.Helper()

	plaintext, err := crypto.NewGateway().SymmetricDecrypt(vault.Blob, testVaultKey)
	require.NoError(t, err)
	snapshot, err := base64.StdEncoding.DecodeString(plaintext)
	require.NoError(t, err)

	st, err := store.OpenVaultStore(logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.ImportSnapshot(context.Background(), snapshot))
	return st
}
