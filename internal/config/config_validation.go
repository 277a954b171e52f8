package config

import (
	"fmt"
	"net/url"
)

// validate checks that the final merged [StructuredConfig] satisfies
// invariants shared by every view of the configuration.
//
// Currently a no-op placeholder; per-view validation lives on the flattened
// config types.
func (cfg *StructuredConfig) validate() error {
	return nil
}

func (cfg *ClientConfig) validate() error {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server url %q", ErrInvalidAdapterConfigs, cfg.ServerURL)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("%w: negative request timeout", ErrInvalidAdapterConfigs)
	}

	if cfg.SaveInterval < 0 {
		return fmt.Errorf("%w: negative save interval", ErrInvalidWorkerConfigs)
	}

	return nil
}
