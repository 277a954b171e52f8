package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/internal/store"
	"github.com/eversafe/go-vault-sync/migrations"
	"github.com/eversafe/go-vault-sync/models"
)

func newSettingsStore(t *testing.T) *store.VaultStore {
	t.Helper()

	st, err := store.OpenVaultStore(logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, migrations.CreateNewVault(st.DB()))
	st.InvalidateDescriptors()
	return st
}

func TestSettingsInitialize_Defaults(t *testing.T) {
	st := newSettingsStore(t)
	svc := NewSettingsService([]string{"mail.example.com"}, nil)

	require.NoError(t, svc.Initialize(context.Background(), st))

	assert.Empty(t, svc.DefaultEmailDomain())
	assert.Equal(t, models.DefaultPasswordSettings(), svc.PasswordSettings())
}

func TestSettingsInitialize_StoredValues(t *testing.T) {
	st := newSettingsStore(t)
	ctx := context.Background()
	require.NoError(t, st.PutSetting(ctx, "DefaultEmailDomain", "mail.example.com"))
	require.NoError(t, st.PutSetting(ctx, "PasswordGenerationSettings",
		`{"Length":24,"UseLowercase":true,"UseUppercase":false,"UseNumbers":true,"UseSpecialChars":false,"UseNonAmbiguousChars":true}`))

	svc := NewSettingsService([]string{"mail.example.com"}, nil)
	require.NoError(t, svc.Initialize(ctx, st))

	assert.Equal(t, "mail.example.com", svc.DefaultEmailDomain())
	assert.Equal(t, models.PasswordSettings{
		Length:               24,
		UseLowercase:         true,
		UseNumbers:           true,
		UseNonAmbiguousChars: true,
	}, svc.PasswordSettings())
}

func TestSettingsInitialize_MalformedStoredJSON(t *testing.T) {
	st := newSettingsStore(t)
	ctx := context.Background()
	require.NoError(t, st.PutSetting(ctx, "PasswordGenerationSettings", "{not json"))

	svc := NewSettingsService(nil, nil)

	assert.Error(t, svc.Initialize(ctx, st))
}

func TestSettings_SetDefaultEmailDomain(t *testing.T) {
	st := newSettingsStore(t)
	ctx := context.Background()
	svc := NewSettingsService(nil, nil)
	require.NoError(t, svc.Initialize(ctx, st))

	require.NoError(t, svc.SetDefaultEmailDomain(ctx, st, "mail.example.com"))

	assert.Equal(t, "mail.example.com", svc.DefaultEmailDomain())

	// A fresh cache reading the same store sees the persisted value.
	reloaded := NewSettingsService(nil, nil)
	require.NoError(t, reloaded.Initialize(ctx, st))
	assert.Equal(t, "mail.example.com", reloaded.DefaultEmailDomain())
}

func TestSettings_SetPasswordSettings(t *testing.T) {
	st := newSettingsStore(t)
	ctx := context.Background()
	svc := NewSettingsService(nil, nil)
	require.NoError(t, svc.Initialize(ctx, st))

	want := models.PasswordSettings{Length: 32, UseLowercase: true, UseUppercase: true}
	require.NoError(t, svc.SetPasswordSettings(ctx, st, want))

	assert.Equal(t, want, svc.PasswordSettings())

	reloaded := NewSettingsService(nil, nil)
	require.NoError(t, reloaded.Initialize(ctx, st))
	assert.Equal(t, want, reloaded.PasswordSettings())
}

func TestSettings_DomainListsAreCopies(t *testing.T) {
	svc := NewSettingsService([]string{"mail.example.com"}, []string{"public.example.com"})

	private := svc.PrivateEmailDomains()
	private[0] = "mutated"

	assert.Equal(t, []string{"mail.example.com"}, svc.PrivateEmailDomains())
	assert.Equal(t, []string{"public.example.com"}, svc.PublicEmailDomains())
}
