package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the vault
// sync client. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags: envPrefix sets the prefix applied to all nested env tag
// lookups (caarlos0/env); env names the environment variable for scalar
// fields directly.
type StructuredConfig struct {
	// App holds application-level settings such as the client version string.
	App App `envPrefix:"APP_"`

	// Adapter holds the vault server endpoint and timeout settings used by
	// the outbound HTTP transport.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Email holds the alias email domain lists supported by the server
	// deployment this client talks to.
	Email Email `envPrefix:"EMAIL_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running client
	// (e.g. "1.2.3"). Sent along in build info output.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Adapter holds network settings for the outbound vault server transport.
type Adapter struct {
	// ServerURL is the base URL of the vault server API
	// (e.g. "https://vault.example.com").
	// Env: ADAPTER_SERVER_URL
	ServerURL string `env:"SERVER_URL"`

	// RequestTimeout is the maximum duration allowed for a single outbound
	// request before the client cancels it (e.g. "15s", "1m").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Email holds the alias email domain lists of the server deployment.
type Email struct {
	// PrivateDomains lists domains the server can receive alias email for.
	// Only aliases within these domains are claimed on vault upload.
	// Env: EMAIL_PRIVATE_DOMAINS (comma-separated)
	PrivateDomains []string `env:"PRIVATE_DOMAINS" envSeparator:","`

	// PublicDomains lists shared public alias domains offered during alias
	// generation.
	// Env: EMAIL_PUBLIC_DOMAINS (comma-separated)
	PublicDomains []string `env:"PUBLIC_DOMAINS" envSeparator:","`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SaveInterval defines how often the background save job flushes
	// unsaved vault changes to the server.
	// Env: WORKERS_SAVE_INTERVAL
	SaveInterval time.Duration `env:"SAVE_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the client configuration
// from all available sources in the following priority order (last source
// wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
