package sources

import (
	"fmt"
	"sync"
	"time"

	"github.com/nuspect/nuspect/pkg/cache"
	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/feeds"
	"github.com/nuspect/nuspect/pkg/feeds/azdo"
	"github.com/nuspect/nuspect/pkg/feeds/nuget"
)

// Builder constructs a feed client for one source.
type Builder func(cfg Config) (feeds.Feed, error)

// ClientCache lazily builds and memoizes one authenticated feed client per
// source name. Clients live for the process lifetime and are never shared
// across source names. The check-then-create step is serialized so that
// concurrent first use cannot construct duplicate clients.
type ClientCache struct {
	registry *Registry
	build    Builder

	mu      sync.Mutex
	clients map[string]feeds.Feed
}

// NewClientCache creates a client cache over the registry. A nil build
// function uses [DefaultBuilder] with the given cache and timeout.
func NewClientCache(registry *Registry, build Builder) *ClientCache {
	return &ClientCache{
		registry: registry,
		build:    build,
		clients:  make(map[string]feeds.Feed),
	}
}

// ClientFor returns the feed client for the named source, building and
// caching it on first use. Credential validation happens before any client
// is constructed, so a misconfigured source fails without network I/O.
func (c *ClientCache) ClientFor(name string) (feeds.Feed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[name]; ok {
		return client, nil
	}

	cfg, ok := c.registry.Source(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownSource, "unknown package source %q", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := c.build(cfg)
	if err != nil {
		return nil, err
	}
	c.clients[name] = client
	return client, nil
}

// BuilderOptions configures [DefaultBuilder].
type BuilderOptions struct {
	Cache          cache.Cache   // response cache; nil disables caching
	CacheTTL       time.Duration // lifetime of cached feed responses
	DefaultTimeout time.Duration // HTTP timeout when a source has no override
}

// DefaultBuilder returns a Builder that constructs the protocol-appropriate
// client for each source kind, attaching exactly one authentication scheme:
//
//   - standard feed + API key: X-NuGet-ApiKey header
//   - alternate feed + API key: basic auth with empty username
//   - username/password (either kind): basic auth
//   - no credentials: anonymous
func DefaultBuilder(opts BuilderOptions) Builder {
	store := opts.Cache
	if store == nil {
		store = cache.NewNullCache()
	}

	return func(cfg Config) (feeds.Feed, error) {
		timeout := opts.DefaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}

		headers := authHeaders(cfg)
		prefix := fmt.Sprintf("%s:%s:", cfg.Kind, cfg.Name)
		base := feeds.NewClient(store, prefix, opts.CacheTTL, timeout, headers)

		switch cfg.Kind {
		case KindNuGet:
			return nuget.NewClient(base, cfg.Name, cfg.URL), nil
		case KindAzureDevOps:
			return azdo.NewClient(base, cfg.Name, cfg.URL, cfg.FeedID), nil
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig,
				"source %q: unknown feed kind %q", cfg.Name, cfg.Kind)
		}
	}
}

func authHeaders(cfg Config) map[string]string {
	switch {
	case cfg.HasAPIKey() && cfg.Kind == KindAzureDevOps:
		// Azure DevOps PATs go in the password slot with an empty username.
		return map[string]string{"Authorization": feeds.BasicAuth("", *cfg.APIKey)}
	case cfg.HasAPIKey():
		return map[string]string{feeds.APIKeyHeader: *cfg.APIKey}
	case cfg.HasBasicAuth():
		var user, pass string
		if cfg.Username != nil {
			user = *cfg.Username
		}
		if cfg.Password != nil {
			pass = *cfg.Password
		}
		return map[string]string{"Authorization": feeds.BasicAuth(user, pass)}
	}
	return nil
}
