package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads the config file, resolves {"$env": ...} references, and
// validates the result. It is called once at startup; nothing re-reads
// configuration per request.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := resolveSecrets(&config); err != nil {
		return Config{}, fmt.Errorf("resolving config secrets: %w", err)
	}

	applyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// resolveSecrets resolves the raw env-ref fields into their typed counterparts
func resolveSecrets(config *Config) error {
	var err error

	if config.Google.ClientID, err = resolveString("google.clientId", config.Google.ClientIDRaw); err != nil {
		return err
	}

	clientSecret, err := resolveEnvRef("google.clientSecret", config.Google.ClientSecretRaw)
	if err != nil {
		return err
	}
	config.Google.ClientSecret = Secret(clientSecret)

	sessionSecret, err := resolveEnvRef("session.secret", config.Session.SecretRaw)
	if err != nil {
		return err
	}
	config.Session.Secret = Secret(sessionSecret)

	if len(config.Picker.APIKeyRaw) > 0 {
		apiKey, err := resolveOptionalString("picker.apiKey", config.Picker.APIKeyRaw)
		if err != nil {
			return err
		}
		config.Picker.APIKey = Secret(apiKey)
	}

	return nil
}

func applyDefaults(config *Config) {
	if len(config.Google.Scopes) == 0 {
		config.Google.Scopes = DefaultScopes
	}
	if config.Picker.MaxItemCount <= 0 {
		config.Picker.MaxItemCount = DefaultMaxItemCount
	}
	if config.Storage.Kind == "" {
		config.Storage.Kind = StorageMemory
	}
	if config.Storage.FirestoreCollection == "" {
		config.Storage.FirestoreCollection = "photos_tokens"
	}
}

// envRef is the {"$env": "VAR_NAME"} wire form for secret values
type envRef struct {
	Env string `json:"$env"`
}

// resolveString accepts either a literal string or an env reference
func resolveString(path string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%s is required", path)
	}

	var literal string
	if err := json.Unmarshal(raw, &literal); err == nil {
		return literal, nil
	}

	return resolveEnvRef(path, raw)
}

// resolveOptionalString is resolveString for values the gateway can run
// without. An env reference to an unset variable resolves to empty instead of
// failing startup; only the pick CLI needs the picker API key.
func resolveOptionalString(path string, raw json.RawMessage) (string, error) {
	var literal string
	if err := json.Unmarshal(raw, &literal); err == nil {
		return literal, nil
	}

	var ref envRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if ref.Env == "" {
		return "", fmt.Errorf("%s must be a string or {\"$env\": \"VAR_NAME\"}", path)
	}
	return os.Getenv(ref.Env), nil
}

// resolveEnvRef accepts only an env reference. Secrets must not appear as
// literals in the config file.
func resolveEnvRef(path string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%s is required", path)
	}

	var literal string
	if err := json.Unmarshal(raw, &literal); err == nil {
		return "", fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format, not a literal", path)
	}

	var ref envRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if ref.Env == "" {
		return "", fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", path)
	}

	value, ok := os.LookupEnv(ref.Env)
	if !ok || value == "" {
		return "", fmt.Errorf("%s references unset environment variable %s", path, ref.Env)
	}
	return value, nil
}
