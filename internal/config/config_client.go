package config

import (
	"fmt"
	"time"
)

// Defaults applied by [GetClientConfig] when a field is absent from every
// configuration source.
const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultRequestTimeout = 15 * time.Second
	DefaultSaveInterval   = 5 * time.Minute
)

// ClientConfig is the flattened, validated configuration view consumed by the
// vault client runtime.
type ClientConfig struct {
	// ServerURL is the base URL of the vault server API.
	ServerURL string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
	// PrivateEmailDomains lists domains eligible for private email aliases.
	PrivateEmailDomains []string
	// PublicEmailDomains lists the shared public alias domains.
	PublicEmailDomains []string
	// SaveInterval defines how often the background save job runs.
	SaveInterval time.Duration
	// Version is the client's semantic version string.
	Version string
}

// GetClientConfig builds and validates the client config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps the fields
// relevant to the client runtime, applies defaults for absent values, and
// validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		ServerURL:           cfg.Adapter.ServerURL,
		RequestTimeout:      cfg.Adapter.RequestTimeout,
		PrivateEmailDomains: cfg.Email.PrivateDomains,
		PublicEmailDomains:  cfg.Email.PublicDomains,
		SaveInterval:        cfg.Workers.SaveInterval,
		Version:             cfg.App.Version,
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.SaveInterval == 0 {
		cfg.SaveInterval = DefaultSaveInterval
	}
}
