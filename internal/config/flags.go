package config

import (
	"flag"
	"strings"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server base URL, e.g. "https://vault.example.com"
//	-c/-config json file path with configs
//	-request-timeout request timeout (e.g., "15s", "1m")
//	-save-interval background save interval (e.g., "5m")
//	-private-domains comma-separated private alias email domains
//	-public-domains comma-separated public alias email domains
func ParseFlags() *StructuredConfig {
	var serverURL string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var saveInterval time.Duration
	var privateDomains string
	var publicDomains string

	flag.StringVar(&serverURL, "a", "", "Vault server base URL")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s, 1m)")
	flag.DurationVar(&saveInterval, "save-interval", 0, "Background save interval (e.g., 5m)")
	flag.StringVar(&privateDomains, "private-domains", "", "Comma-separated private alias email domains")
	flag.StringVar(&publicDomains, "public-domains", "", "Comma-separated public alias email domains")

	flag.Parse()

	return &StructuredConfig{
		Adapter: Adapter{
			ServerURL:      serverURL,
			RequestTimeout: requestTimeout,
		},
		Email: Email{
			PrivateDomains: splitDomains(privateDomains),
			PublicDomains:  splitDomains(publicDomains),
		},
		Workers: Workers{
			SaveInterval: saveInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// splitDomains splits a comma-separated domain list, trimming whitespace and
// dropping empty entries. Returns nil for an empty input so the field merges
// as unset.
func splitDomains(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	domains := make([]string, 0, len(parts))
	for _, part := range parts {
		if domain := strings.TrimSpace(part); domain != "" {
			domains = append(domains, domain)
		}
	}
	if len(domains) == 0 {
		return nil
	}

	return domains
}
