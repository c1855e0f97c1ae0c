package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// listKeys are keys whose environment values are comma separated lists.
var listKeys = map[string]bool{
	"locale.supported": true,
}

// Loader hydrates the configuration with env > file > default precedence.
type Loader struct {
	envPrefix string
	files     []string
}

// NewLoader prepares a loader reading the given YAML files in order.
// Empty paths are ignored.
func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{envPrefix: envPrefix, files: files}
}

// Load assembles and validates the effective configuration.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(DefaultConfig()), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Config{}, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		prefix := l.envPrefix + "_"
		transform := func(key, value string) (string, any) {
			// Double underscores nest: UPSTREAM__BASE_URL -> upstream.base_url.
			k := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, prefix), "__", "."))
			if listKeys[k] {
				return k, splitList(value)
			}
			return k, value
		}
		if err := k.Load(env.ProviderWithValue(prefix, ".", transform), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// structToMap converts a Config into a map for the koanf confmap provider.
func structToMap(cfg Config) map[string]any {
	store := func(s StoreConfig) map[string]any {
		return map[string]any{
			"ttl":         s.TTL,
			"max_entries": s.MaxEntries,
		}
	}
	aliases := make(map[string]any, len(cfg.Locale.Aliases))
	for k, v := range cfg.Locale.Aliases {
		aliases[k] = v
	}

	return map[string]any{
		"server": map[string]any{
			"address":          cfg.Server.Address,
			"shutdown_timeout": cfg.Server.ShutdownTimeout,
		},
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"pretty": cfg.Logging.Pretty,
		},
		"upstream": map[string]any{
			"base_url":       cfg.Upstream.BaseURL,
			"token":          cfg.Upstream.Token,
			"user_agent":     cfg.Upstream.UserAgent,
			"timeout":        cfg.Upstream.Timeout,
			"max_body_bytes": cfg.Upstream.MaxBodyBytes,
			"media_base_url": cfg.Upstream.MediaBaseURL,
		},
		"locale": map[string]any{
			"default":   cfg.Locale.Default,
			"supported": append([]string(nil), cfg.Locale.Supported...),
			"aliases":   aliases,
		},
		"cache": map[string]any{
			"homepage":       store(cfg.Cache.Homepage),
			"pages":          store(cfg.Cache.Pages),
			"news":           store(cfg.Cache.News),
			"menus":          store(cfg.Cache.Menus),
			"sweep_interval": cfg.Cache.SweepInterval,
		},
		"aggregator": map[string]any{
			"max_concurrency": cfg.Aggregator.MaxConcurrency,
			"coalesce":        cfg.Aggregator.Coalesce,
			"degraded_ttl":    cfg.Aggregator.DegradedTTL,
		},
		"registry": map[string]any{
			"file": cfg.Registry.File,
		},
	}
}
