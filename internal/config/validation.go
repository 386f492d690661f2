package config

import (
	"fmt"
	"net/url"
)

// ValidateConfig validates the resolved configuration. Any missing required
// value is a fatal startup condition.
func ValidateConfig(config *Config) error {
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if config.Server.FrontendURL == "" {
		return fmt.Errorf("server.frontendUrl is required")
	}
	if _, err := url.Parse(config.Server.FrontendURL); err != nil {
		return fmt.Errorf("server.frontendUrl is not a valid URL: %w", err)
	}

	if config.Google.ClientID == "" {
		return fmt.Errorf("google.clientId is required")
	}
	if config.Google.ClientSecret == "" {
		return fmt.Errorf("google.clientSecret is required")
	}
	if config.Google.RedirectURI == "" {
		return fmt.Errorf("google.redirectUri is required")
	}
	if _, err := url.Parse(config.Google.RedirectURI); err != nil {
		return fmt.Errorf("google.redirectUri is not a valid URL: %w", err)
	}

	if len(config.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 bytes")
	}

	switch config.Storage.Kind {
	case StorageMemory:
	case StorageFirestore:
		if config.Storage.GCPProject == "" {
			return fmt.Errorf("storage.gcpProject is required for firestore storage")
		}
	default:
		return fmt.Errorf("storage.kind must be %q or %q, got %q", StorageMemory, StorageFirestore, config.Storage.Kind)
	}

	return nil
}
