package config

import (
	"encoding/json"
)

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

// StorageKind selects the bookmark store backend
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindFirestore StorageKind = "firestore"
)

// AppConfig holds the front's own addressing
type AppConfig struct {
	// BaseURL is the externally visible origin, used to build absolute
	// redirect URLs (auth completion, magic-link return)
	BaseURL string `json:"baseURL"`
	Addr    string `json:"addr"`
}

// IdentityConfig points at the external identity provider
type IdentityConfig struct {
	URL    string `json:"url"`
	APIKey Secret `json:"apiKey"`
}

// WebhookConfig points at the downstream bookmark processor
type WebhookConfig struct {
	URL Secret `json:"url"`
}

// StorageConfig selects and parameterizes the bookmark store
type StorageConfig struct {
	Kind       StorageKind `json:"kind,omitempty"`
	GCPProject string      `json:"gcpProject,omitempty"`
	Database   string      `json:"database,omitempty"`
	Collection string      `json:"collection,omitempty"`
}

// Config is the complete application configuration
type Config struct {
	Version  string         `json:"version"`
	App      AppConfig      `json:"app"`
	Identity IdentityConfig `json:"identity"`
	Webhook  WebhookConfig  `json:"webhook"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}
