package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Load reads and validates the config file, resolving {"$env": "VAR"}
// references immediately. Any missing endpoint or credential is a startup
// failure; absence must never surface later at request time.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	resolved, err := resolveEnvRefs(raw, "")
	if err != nil {
		return Config{}, fmt.Errorf("resolving environment references: %w", err)
	}

	resolvedData, err := json.Marshal(resolved)
	if err != nil {
		return Config{}, fmt.Errorf("re-encoding config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(resolvedData, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// resolveEnvRefs walks the raw config and replaces {"$env": "VAR"} maps
// with the value of the named environment variable. The explicit JSON
// syntax avoids accidental shell expansion of $VAR in startup scripts.
func resolveEnvRefs(node any, path string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$env"]; ok && len(v) == 1 {
			name, ok := ref.(string)
			if !ok {
				return nil, fmt.Errorf("%s: $env reference must be a string", path)
			}
			value, found := os.LookupEnv(name)
			if !found {
				return nil, fmt.Errorf("%s: environment variable %s is not set", path, name)
			}
			return value, nil
		}
		resolved := make(map[string]any, len(v))
		for key, child := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			r, err := resolveEnvRefs(child, childPath)
			if err != nil {
				return nil, err
			}
			resolved[key] = r
		}
		return resolved, nil
	case []any:
		resolved := make([]any, len(v))
		for i, child := range v {
			r, err := resolveEnvRefs(child, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	default:
		return node, nil
	}
}

// Validate checks the resolved configuration
func Validate(config *Config) error {
	if config.Version == "" {
		return fmt.Errorf("config version is required")
	}
	if config.Version != "v1" {
		return fmt.Errorf("unsupported config version: %s", config.Version)
	}
	if config.App.BaseURL == "" {
		return fmt.Errorf("app.baseURL is required")
	}
	if !strings.HasPrefix(config.App.BaseURL, "http://") && !strings.HasPrefix(config.App.BaseURL, "https://") {
		return fmt.Errorf("app.baseURL must be an absolute http(s) URL")
	}
	if config.App.Addr == "" {
		return fmt.Errorf("app.addr is required")
	}
	if config.Identity.URL == "" {
		return fmt.Errorf("identity.url is required")
	}
	if config.Identity.APIKey == "" {
		return fmt.Errorf("identity.apiKey is required")
	}
	if config.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required")
	}

	if s := config.Storage; s != nil {
		switch s.Kind {
		case "", StorageKindMemory:
		case StorageKindFirestore:
			if s.GCPProject == "" {
				return fmt.Errorf("storage.gcpProject is required for firestore storage")
			}
			if s.Collection == "" {
				return fmt.Errorf("storage.collection is required for firestore storage")
			}
		default:
			return fmt.Errorf("unknown storage kind: %s", s.Kind)
		}
	}

	return nil
}
