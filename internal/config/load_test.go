package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `{
  "server": {"addr": ":8080", "frontendUrl": "https://app.example.com"},
  "google": {
    "clientId": {"$env": "TEST_GOOGLE_CLIENT_ID"},
    "clientSecret": {"$env": "TEST_GOOGLE_CLIENT_SECRET"},
    "redirectUri": "https://api.example.com/auth-callback"
  },
  "session": {"secret": {"$env": "TEST_SESSION_SECRET"}},
  "storage": {"kind": "memory"}
}`

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TEST_GOOGLE_CLIENT_ID", "client-id-123")
	t.Setenv("TEST_GOOGLE_CLIENT_SECRET", "client-secret-456")
	t.Setenv("TEST_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoad(t *testing.T) {
	t.Run("resolves env references and applies defaults", func(t *testing.T) {
		setTestEnv(t)

		cfg, err := Load(writeConfig(t, validConfig))
		require.NoError(t, err)

		assert.Equal(t, "client-id-123", cfg.Google.ClientID)
		assert.Equal(t, Secret("client-secret-456"), cfg.Google.ClientSecret)
		assert.Equal(t, Secret("0123456789abcdef0123456789abcdef"), cfg.Session.Secret)
		assert.Equal(t, DefaultScopes, cfg.Google.Scopes)
		assert.Equal(t, DefaultMaxItemCount, cfg.Picker.MaxItemCount)
		assert.Equal(t, StorageMemory, cfg.Storage.Kind)
		assert.Equal(t, "photos_tokens", cfg.Storage.FirestoreCollection)
	})

	t.Run("fails on unset environment variable", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("TEST_SESSION_SECRET", "")

		_, err := Load(writeConfig(t, validConfig))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TEST_SESSION_SECRET")
	})

	t.Run("rejects literal secrets", func(t *testing.T) {
		setTestEnv(t)

		_, err := Load(writeConfig(t, `{
  "server": {"addr": ":8080", "frontendUrl": "https://app.example.com"},
  "google": {
    "clientId": "literal-ok",
    "clientSecret": "literal-not-ok",
    "redirectUri": "https://api.example.com/auth-callback"
  },
  "session": {"secret": {"$env": "TEST_SESSION_SECRET"}},
  "storage": {"kind": "memory"}
}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clientSecret")
	})

	t.Run("picker api key resolves when set", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("TEST_GOOGLE_API_KEY", "picker-key-789")

		cfg, err := Load(writeConfig(t, `{
  "server": {"addr": ":8080", "frontendUrl": "https://app.example.com"},
  "google": {
    "clientId": {"$env": "TEST_GOOGLE_CLIENT_ID"},
    "clientSecret": {"$env": "TEST_GOOGLE_CLIENT_SECRET"},
    "redirectUri": "https://api.example.com/auth-callback"
  },
  "session": {"secret": {"$env": "TEST_SESSION_SECRET"}},
  "storage": {"kind": "memory"},
  "picker": {"apiKey": {"$env": "TEST_GOOGLE_API_KEY"}, "maxItemCount": 25}
}`))
		require.NoError(t, err)
		assert.Equal(t, Secret("picker-key-789"), cfg.Picker.APIKey)
		assert.Equal(t, 25, cfg.Picker.MaxItemCount)
	})

	t.Run("unset picker api key is not fatal", func(t *testing.T) {
		setTestEnv(t)
		// The gateway itself never uses the picker key; only the pick CLI
		// does, so a missing variable must not abort startup.
		os.Unsetenv("TEST_GOOGLE_API_KEY")

		cfg, err := Load(writeConfig(t, `{
  "server": {"addr": ":8080", "frontendUrl": "https://app.example.com"},
  "google": {
    "clientId": {"$env": "TEST_GOOGLE_CLIENT_ID"},
    "clientSecret": {"$env": "TEST_GOOGLE_CLIENT_SECRET"},
    "redirectUri": "https://api.example.com/auth-callback"
  },
  "session": {"secret": {"$env": "TEST_SESSION_SECRET"}},
  "storage": {"kind": "memory"},
  "picker": {"apiKey": {"$env": "TEST_GOOGLE_API_KEY"}}
}`))
		require.NoError(t, err)
		assert.Equal(t, Secret(""), cfg.Picker.APIKey)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080", FrontendURL: "https://app.example.com"},
			Google:  GoogleConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://api.example.com/cb"},
			Session: SessionConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Storage: StorageConfig{Kind: StorageMemory},
		}
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, ValidateConfig(&cfg))
	})

	t.Run("short session secret", func(t *testing.T) {
		cfg := base()
		cfg.Session.Secret = "too-short"
		assert.Error(t, ValidateConfig(&cfg))
	})

	t.Run("firestore requires project", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Kind = StorageFirestore
		assert.Error(t, ValidateConfig(&cfg))

		cfg.Storage.GCPProject = "proj"
		assert.NoError(t, ValidateConfig(&cfg))
	})

	t.Run("unknown storage kind", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Kind = "redis"
		assert.Error(t, ValidateConfig(&cfg))
	})

	t.Run("missing required fields", func(t *testing.T) {
		for name, mutate := range map[string]func(*Config){
			"addr":         func(c *Config) { c.Server.Addr = "" },
			"frontendUrl":  func(c *Config) { c.Server.FrontendURL = "" },
			"clientId":     func(c *Config) { c.Google.ClientID = "" },
			"clientSecret": func(c *Config) { c.Google.ClientSecret = "" },
			"redirectUri":  func(c *Config) { c.Google.RedirectURI = "" },
		} {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, ValidateConfig(&cfg), "expected error for missing %s", name)
		}
	})
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-sensitive")
	assert.Equal(t, "***", s.String())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"***"`, string(data))
	assert.NotContains(t, string(data), "sensitive")
}
