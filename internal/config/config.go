// Package config loads the service configuration from defaults, an optional
// YAML file and CMSCACHE_ environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/Sternrassler/cms-page-cache/pkg/aggregator"
	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/Sternrassler/cms-page-cache/pkg/locale"
	"github.com/Sternrassler/cms-page-cache/pkg/logging"
	"github.com/Sternrassler/cms-page-cache/pkg/registry"
)

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "CMSCACHE"

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Locale     LocaleConfig     `koanf:"locale"`
	Cache      CacheConfig      `koanf:"cache"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Registry   RegistryConfig   `koanf:"registry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `koanf:"address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// UpstreamConfig describes the content API.
type UpstreamConfig struct {
	BaseURL      string        `koanf:"base_url"`
	Token        string        `koanf:"token"`
	UserAgent    string        `koanf:"user_agent"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	// MediaBaseURL prefixes relative media URLs; empty means BaseURL.
	MediaBaseURL string `koanf:"media_base_url"`
}

// LocaleConfig is the canonical locale table.
type LocaleConfig struct {
	Default   string            `koanf:"default"`
	Supported []string          `koanf:"supported"`
	Aliases   map[string]string `koanf:"aliases"`
}

// StoreConfig sizes one cache store.
type StoreConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// CacheConfig sizes the four stores and the expiry sweep.
type CacheConfig struct {
	Homepage      StoreConfig   `koanf:"homepage"`
	Pages         StoreConfig   `koanf:"pages"`
	News          StoreConfig   `koanf:"news"`
	Menus         StoreConfig   `koanf:"menus"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// AggregatorConfig tunes page assembly.
type AggregatorConfig struct {
	MaxConcurrency int           `koanf:"max_concurrency"`
	Coalesce       bool          `koanf:"coalesce"`
	DegradedTTL    time.Duration `koanf:"degraded_ttl"`
}

// RegistryConfig points at an optional registry override file.
type RegistryConfig struct {
	File string `koanf:"file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	cl := client.DefaultConfig("")
	loc := locale.DefaultConfig()
	cs := aggregator.DefaultCacheSettings()
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
		Upstream: UpstreamConfig{
			UserAgent:    cl.UserAgent,
			Timeout:      cl.Timeout,
			MaxBodyBytes: cl.MaxBodyBytes,
		},
		Locale: LocaleConfig{
			Default:   loc.Default,
			Supported: loc.Supported,
			Aliases:   loc.Aliases,
		},
		Cache: CacheConfig{
			Homepage:      StoreConfig(cs.Homepage),
			Pages:         StoreConfig(cs.Pages),
			News:          StoreConfig(cs.News),
			Menus:         StoreConfig(cs.Menus),
			SweepInterval: time.Minute,
		},
		Aggregator: AggregatorConfig{
			MaxConcurrency: 8,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	levels := make([]any, 0, len(logging.Levels()))
	for _, l := range logging.Levels() {
		levels = append(levels, string(l))
	}

	if err := validation.ValidateStruct(&c.Upstream,
		validation.Field(&c.Upstream.BaseURL, validation.Required, is.URL, validation.By(httpScheme)),
		validation.Field(&c.Upstream.MediaBaseURL, is.URL),
		validation.Field(&c.Upstream.Timeout, validation.Min(time.Millisecond)),
		validation.Field(&c.Upstream.MaxBodyBytes, validation.Min(int64(1))),
	); err != nil {
		return fmt.Errorf("config: upstream: %w", err)
	}
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Address, validation.Required),
		validation.Field(&c.Server.ShutdownTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("config: server: %w", err)
	}
	if err := validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Level, validation.Required, validation.In(levels...)),
	); err != nil {
		return fmt.Errorf("config: logging: %w", err)
	}
	if err := validation.ValidateStruct(&c.Locale,
		validation.Field(&c.Locale.Default, validation.Required),
	); err != nil {
		return fmt.Errorf("config: locale: %w", err)
	}
	if err := validation.ValidateStruct(&c.Cache,
		validation.Field(&c.Cache.Homepage),
		validation.Field(&c.Cache.Pages),
		validation.Field(&c.Cache.News),
		validation.Field(&c.Cache.Menus),
		validation.Field(&c.Cache.SweepInterval, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("config: cache: %w", err)
	}
	if err := validation.ValidateStruct(&c.Aggregator,
		validation.Field(&c.Aggregator.MaxConcurrency, validation.Min(0)),
		validation.Field(&c.Aggregator.DegradedTTL, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("config: aggregator: %w", err)
	}
	return nil
}

// Validate checks one store's sizing.
func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&s.MaxEntries, validation.Required, validation.Min(1)),
	)
}

func httpScheme(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_http_scheme", "must use http or https")
	}
	return nil
}

// ClientConfig returns the content client configuration.
func (c Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Upstream.BaseURL)
	cfg.Token = c.Upstream.Token
	if c.Upstream.UserAgent != "" {
		cfg.UserAgent = c.Upstream.UserAgent
	}
	cfg.Timeout = c.Upstream.Timeout
	cfg.MaxBodyBytes = c.Upstream.MaxBodyBytes
	return cfg
}

// MediaBaseURL returns the prefix for relative media URLs.
func (c Config) MediaBaseURL() string {
	if c.Upstream.MediaBaseURL != "" {
		return c.Upstream.MediaBaseURL
	}
	return c.Upstream.BaseURL
}

// LocaleConfig returns the locale table.
func (c Config) LocaleConfig() locale.Config {
	return locale.Config{
		Default:   c.Locale.Default,
		Supported: c.Locale.Supported,
		Aliases:   c.Locale.Aliases,
	}
}

// CacheSettings returns the store sizing.
func (c Config) CacheSettings() aggregator.CacheSettings {
	return aggregator.CacheSettings{
		Homepage: aggregator.StoreSettings(c.Cache.Homepage),
		Pages:    aggregator.StoreSettings(c.Cache.Pages),
		News:     aggregator.StoreSettings(c.Cache.News),
		Menus:    aggregator.StoreSettings(c.Cache.Menus),
	}
}

// LoggingConfig returns the logger configuration writing to stderr.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  logging.LogLevel(strings.ToLower(c.Logging.Level)),
		Pretty: c.Logging.Pretty,
		Output: os.Stderr,
	}
}

// LoadRegistry returns the built-in registry merged with the override
// file, if one is configured.
func (c Config) LoadRegistry() (*registry.Registry, error) {
	if c.Registry.File == "" {
		return registry.Default(), nil
	}
	return registry.LoadFile(registry.Default(), c.Registry.File)
}
