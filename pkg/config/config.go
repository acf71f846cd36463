// Package config loads nuspect's TOML configuration file.
//
// The file declares the package sources to resolve against, plus cache and
// HTTP settings. Credentials may be set directly or through environment
// substitution by the tool that writes the file; a credential key that ends
// up present but blank is rejected at source validation time rather than
// silently treated as anonymous access.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/sources"
)

// Defaults applied when the file omits a setting.
const (
	DefaultTimeoutSeconds = 30
	DefaultMaxRetries     = 3
	DefaultCacheTTLHours  = 24
	DefaultSourceName     = "nuget.org"
	DefaultSourceURL      = "https://api.nuget.org/v3/index.json"
)

// Config is the parsed configuration file.
type Config struct {
	// TimeoutSeconds is the default HTTP timeout; sources may override it.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// MaxRetries is reserved for tuning the per-request retry budget.
	// It is parsed and validated but the retry count is currently fixed.
	MaxRetries int `toml:"max_retries"`

	Cache   CacheConfig    `toml:"cache"`
	Sources []SourceConfig `toml:"sources"`
}

// CacheConfig selects and configures the response cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend"` // "file", "redis", or "none"
	Dir      string `toml:"dir"`     // file backend; defaults under the user cache dir
	TTLHours int    `toml:"ttl_hours"`

	// Redis backend settings.
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// SourceConfig is one [[sources]] entry. Credential fields are pointers so
// a key that is present but blank survives parsing as distinct from absent.
type SourceConfig struct {
	Name           string  `toml:"name"`
	URL            string  `toml:"url"`
	Kind           string  `toml:"kind"` // "nuget" or "azdo"
	Enabled        *bool   `toml:"enabled"`
	Priority       int     `toml:"priority"`
	Username       *string `toml:"username"`
	Password       *string `toml:"password"`
	APIKey         *string `toml:"api_key"`
	TimeoutSeconds int     `toml:"timeout_seconds"`

	// Azure DevOps settings.
	Organization string `toml:"organization"`
	FeedID       string `toml:"feed_id"`
	NativeOnly   bool   `toml:"native_only"`
}

// Default returns the configuration used when no file exists: the public
// nuget.org feed with a file-backed cache.
func Default() *Config {
	enabled := true
	return &Config{
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxRetries:     DefaultMaxRetries,
		Cache:          CacheConfig{Backend: "file", TTLHours: DefaultCacheTTLHours},
		Sources: []SourceConfig{{
			Name:    DefaultSourceName,
			URL:     DefaultSourceURL,
			Kind:    string(sources.KindNuGet),
			Enabled: &enabled,
		}},
	}
}

// DefaultPath returns the conventional configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate user config dir")
	}
	return filepath.Join(dir, "nuspect", "config.toml"), nil
}

// Load reads and validates the configuration file at path. An empty path
// uses [DefaultPath], and a missing file at the default location falls back
// to [Default]. A missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = DefaultCacheTTLHours
	}
}

// Validate checks file-level settings. Per-source validation happens when a
// source's client is first built, so one broken source does not prevent
// operations against the others.
func (c *Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "timeout_seconds cannot be negative")
	}
	if c.MaxRetries < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_retries cannot be negative")
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend %q (expected file, redis, or none)", c.Cache.Backend)
	}
	return nil
}

// SourceConfigs converts the file entries into the resolver's source model.
// Sources default to enabled; disabling is explicit.
func (c *Config) SourceConfigs() []sources.Config {
	out := make([]sources.Config, 0, len(c.Sources))
	for _, s := range c.Sources {
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		out = append(out, sources.Config{
			Name:           s.Name,
			URL:            s.URL,
			Kind:           sources.Kind(s.Kind),
			Enabled:        enabled,
			Priority:       s.Priority,
			Username:       s.Username,
			Password:       s.Password,
			APIKey:         s.APIKey,
			TimeoutSeconds: s.TimeoutSeconds,
			Organization:   s.Organization,
			FeedID:         s.FeedID,
			NativeOnly:     s.NativeOnly,
		})
	}
	return out
}

// Timeout returns the default HTTP timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// CacheDir returns the directory for the file cache backend, creating the
// default under the user cache dir when unset.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate user cache dir")
	}
	return filepath.Join(dir, "nuspect"), nil
}
