package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/eversafe/go-vault-sync/internal/store"
	"github.com/eversafe/go-vault-sync/models"
)

// Settings table keys the vault stores its user preferences under.
const (
	settingDefaultEmailDomain = "DefaultEmailDomain"
	settingPasswordGeneration = "PasswordGenerationSettings"
)

// SettingsService caches the user preferences stored inside the vault plus
// the email domain lists the server supports. It is re-initialized every time
// the active vault store changes (load, create, merge).
type SettingsService struct {
	mu sync.RWMutex

	privateEmailDomains []string
	publicEmailDomains  []string
	defaultEmailDomain  string
	passwordSettings    models.PasswordSettings
}

// NewSettingsService creates the settings cache with the supported email
// domain lists, typically taken from client configuration.
func NewSettingsService(privateEmailDomains, publicEmailDomains []string) *SettingsService {
	return &SettingsService{
		privateEmailDomains: privateEmailDomains,
		publicEmailDomains:  publicEmailDomains,
		passwordSettings:    models.DefaultPasswordSettings(),
	}
}

// Initialize reads the preference rows out of st and caches them. Missing
// rows fall back to defaults; a malformed stored value is an error so the
// user's intent is never silently replaced.
func (s *SettingsService) Initialize(ctx context.Context, st *store.VaultStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain, found, err := st.Setting(ctx, settingDefaultEmailDomain)
	if err != nil {
		return fmt.Errorf("read default email domain: %w", err)
	}
	if found {
		s.defaultEmailDomain = domain
	} else {
		s.defaultEmailDomain = ""
	}

	raw, found, err := st.Setting(ctx, settingPasswordGeneration)
	if err != nil {
		return fmt.Errorf("read password settings: %w", err)
	}
	settings := models.DefaultPasswordSettings()
	if found && raw != "" {
		if err = json.Unmarshal([]byte(raw), &settings); err != nil {
			return fmt.Errorf("parse password settings: %w", err)
		}
	}
	s.passwordSettings = settings

	return nil
}

// SetDefaultEmailDomain persists the preferred alias email domain into st and
// updates the cache.
func (s *SettingsService) SetDefaultEmailDomain(ctx context.Context, st *store.VaultStore, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := st.PutSetting(ctx, settingDefaultEmailDomain, domain); err != nil {
		return fmt.Errorf("store default email domain: %w", err)
	}
	s.defaultEmailDomain = domain
	return nil
}

// SetPasswordSettings persists the password generation preferences into st
// and updates the cache.
func (s *SettingsService) SetPasswordSettings(ctx context.Context, st *store.VaultStore, settings models.PasswordSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode password settings: %w", err)
	}
	if err = st.PutSetting(ctx, settingPasswordGeneration, string(raw)); err != nil {
		return fmt.Errorf("store password settings: %w", err)
	}
	s.passwordSettings = settings
	return nil
}

// DefaultEmailDomain returns the preferred alias email domain, or empty when
// the user never chose one.
func (s *SettingsService) DefaultEmailDomain() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultEmailDomain
}

// PasswordSettings returns the cached password generation preferences.
func (s *SettingsService) PasswordSettings() models.PasswordSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passwordSettings
}

// PrivateEmailDomains lists the domains eligible for private email aliases.
func (s *SettingsService) PrivateEmailDomains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.privateEmailDomains...)
}

// PublicEmailDomains lists the shared public alias domains.
func (s *SettingsService) PublicEmailDomains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.publicEmailDomains...)
}
