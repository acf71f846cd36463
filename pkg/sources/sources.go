// Package sources holds the configured package sources and hands out one
// authenticated feed client per source.
//
// A [Config] describes a single remote feed: where it lives, how to
// authenticate against it, and where it sits in the fallback order. Configs
// are values created once at startup and never mutated afterwards, so they
// may be read concurrently without locking.
//
// [Registry] answers ordering questions (enabled sources by descending
// priority, the primary source). [ClientCache] lazily builds and memoizes
// one feed client per source name, serializing the check-then-create step
// so concurrent first use cannot construct duplicate clients.
package sources

import (
	"sort"
	"strings"

	"github.com/nuspect/nuspect/pkg/errors"
)

// Kind identifies the feed protocol a source speaks.
type Kind string

const (
	// KindNuGet is the standard NuGet v3 protocol (service index discovery,
	// flat-container versions and content, search query service).
	KindNuGet Kind = "nuget"

	// KindAzureDevOps is the Azure DevOps Artifacts feed protocol
	// (org/feed-scoped URLs, PAT via basic auth with empty username).
	KindAzureDevOps Kind = "azdo"
)

// Config describes one configured package source. Credential fields are
// pointers so that a key present-but-blank in configuration (almost always a
// broken environment substitution) can be told apart from an absent key.
type Config struct {
	Name     string  // unique key
	URL      string  // base URL (service index for nuget, org URL for azdo)
	Username *string // optional, paired with Password
	Password *string // optional, paired with Username
	APIKey   *string // optional; mutually exclusive with Username/Password
	Enabled  bool
	Priority int // higher tried first
	Kind     Kind

	// TimeoutSeconds overrides the default HTTP timeout for this source.
	// Zero means use the default.
	TimeoutSeconds int

	// Azure DevOps fields.
	Organization string
	FeedID       string
	NativeOnly   bool // exclude upstream-proxied versions
}

// HasAPIKey reports whether an API key is configured (even a blank one).
func (c Config) HasAPIKey() bool { return c.APIKey != nil }

// HasBasicAuth reports whether username/password credentials are configured.
func (c Config) HasBasicAuth() bool { return c.Username != nil || c.Password != nil }

// Validate checks the source definition. Credential validation is strict:
// a present-but-blank secret is a configuration error, not anonymous access.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "source name cannot be empty")
	}
	if err := errors.ValidateURL(c.URL); err != nil {
		return err
	}
	switch c.Kind {
	case KindNuGet:
	case KindAzureDevOps:
		if c.FeedID == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "source %q: azdo sources require a feed id", c.Name)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "source %q: unknown feed kind %q", c.Name, c.Kind)
	}
	if c.HasAPIKey() && c.HasBasicAuth() {
		return errors.New(errors.ErrCodeInvalidConfig,
			"source %q: api key and username/password are mutually exclusive", c.Name)
	}
	if err := errors.ValidateCredential("api key", c.APIKey); err != nil {
		return errors.Wrap(errors.ErrCodeBlankCredential, err, "source %q", c.Name)
	}
	if err := errors.ValidateCredential("username", c.Username); err != nil {
		return errors.Wrap(errors.ErrCodeBlankCredential, err, "source %q", c.Name)
	}
	if err := errors.ValidateCredential("password", c.Password); err != nil {
		return errors.Wrap(errors.ErrCodeBlankCredential, err, "source %q", c.Name)
	}
	return nil
}

// Registry holds the ordered collection of configured sources.
type Registry struct {
	configs []Config // declaration order
	byName  map[string]Config
}

// NewRegistry builds a registry from the configured sources.
// Source names must be unique.
func NewRegistry(configs []Config) (*Registry, error) {
	byName := make(map[string]Config, len(configs))
	for _, c := range configs {
		if _, dup := byName[c.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate source name %q", c.Name)
		}
		byName[c.Name] = c
	}
	return &Registry{configs: configs, byName: byName}, nil
}

// Source looks up a source by name.
func (r *Registry) Source(name string) (Config, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// EnabledSources returns the enabled sources ordered by descending priority.
// Sources with equal priority keep their declaration order.
func (r *Registry) EnabledSources() []Config {
	enabled := make([]Config, 0, len(r.configs))
	for _, c := range r.configs {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority > enabled[j].Priority
	})
	return enabled
}

// PrimarySource returns the single highest-priority enabled source.
func (r *Registry) PrimarySource() (Config, error) {
	enabled := r.EnabledSources()
	if len(enabled) == 0 {
		return Config{}, errors.New(errors.ErrCodeNoEnabledSources, "no enabled package sources configured")
	}
	return enabled[0], nil
}

// All returns every configured source in declaration order.
func (r *Registry) All() []Config {
	out := make([]Config, len(r.configs))
	copy(out, r.configs)
	return out
}
