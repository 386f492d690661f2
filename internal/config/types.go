package config

import "encoding/json"

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the token store backend
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
)

// DefaultScope is what the reference deployment requests: identity plus
// read-only picker access.
var DefaultScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/photospicker.mediaitems.readonly",
}

// DefaultMaxItemCount caps how many items a picker session lets the user select
const DefaultMaxItemCount = 50

// Config is the process-wide configuration, loaded and validated once at startup
type Config struct {
	Server  ServerConfig  `json:"server"`
	Google  GoogleConfig  `json:"google"`
	Session SessionConfig `json:"session"`
	Storage StorageConfig `json:"storage"`
	Picker  PickerConfig  `json:"picker"`
}

// ServerConfig configures the HTTP listener and the browser frontend it serves
type ServerConfig struct {
	Addr string `json:"addr"`

	// FrontendURL is both the CORS origin allowed to call /photos-token with
	// credentials and the fallback redirect target after auth-callback.
	FrontendURL string `json:"frontendUrl"`
}

// GoogleConfig holds the OAuth client registration
type GoogleConfig struct {
	ClientID     string   `json:"-"`
	ClientSecret Secret   `json:"-"`
	RedirectURI  string   `json:"redirectUri"`
	Scopes       []string `json:"scopes,omitempty"`

	ClientIDRaw     json.RawMessage `json:"clientId"`
	ClientSecretRaw json.RawMessage `json:"clientSecret"`
}

// SessionConfig holds the cookie-signing secret
type SessionConfig struct {
	Secret Secret `json:"-"`

	SecretRaw json.RawMessage `json:"secret"`
}

// StorageConfig selects and configures the token store backend
type StorageConfig struct {
	Kind                StorageKind `json:"kind"`
	GCPProject          string      `json:"gcpProject,omitempty"`
	FirestoreDatabase   string      `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string      `json:"firestoreCollection,omitempty"`
}

// PickerConfig configures the Google Photos Picker API client
type PickerConfig struct {
	APIKey       Secret `json:"-"`
	MaxItemCount int    `json:"maxItemCount,omitempty"`

	APIKeyRaw json.RawMessage `json:"apiKey,omitempty"`
}
