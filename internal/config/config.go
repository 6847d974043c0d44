// Package config loads newsrag configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (NEWSRAG_*). Nested keys use underscores
// doubled, e.g. NEWSRAG_SERVER__PORT.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("NEWSRAG_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "NEWSRAG_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// OPENAI_API_KEY is the conventional fallback for the key.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[StoreBackend]bool{
	BackendLocal:  true,
	BackendRemote: true,
}

var validFusionMethods = map[string]bool{
	"weighted": true,
	"rrf":      true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend %q: must be local or remote", c.Store.Backend)
	}
	if c.Store.Backend == BackendRemote && c.Store.RemoteURL == "" {
		return fmt.Errorf("remote backend requires store.remote_url")
	}
	if c.Store.Backend == BackendLocal && c.Store.Path == "" {
		return fmt.Errorf("local backend requires store.path")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive")
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be in [0,1]")
	}
	if c.Search.FusionMethod != "" && !validFusionMethods[c.Search.FusionMethod] {
		return fmt.Errorf("invalid fusion_method %q: must be weighted or rrf", c.Search.FusionMethod)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535")
	}
	if c.CacheTTL != "" {
		if _, err := time.ParseDuration(c.CacheTTL); err != nil {
			return fmt.Errorf("invalid cache_ttl: %w", err)
		}
	}
	if c.Rerank.HalfLife != "" {
		if _, err := time.ParseDuration(c.Rerank.HalfLife); err != nil {
			return fmt.Errorf("invalid rerank.half_life: %w", err)
		}
	}
	return nil
}

// CacheTTLDuration returns the parsed cache TTL, or zero when unset.
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

// HalfLifeDuration returns the parsed rerank half-life, or zero when unset.
func (c *Config) HalfLifeDuration() time.Duration {
	d, err := time.ParseDuration(c.Rerank.HalfLife)
	if err != nil {
		return 0
	}
	return d
}
