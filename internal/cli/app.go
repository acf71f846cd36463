package cli

import (
	"context"

	"github.com/nuspect/nuspect/pkg/cache"
	"github.com/nuspect/nuspect/pkg/config"
	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/resolver"
	"github.com/nuspect/nuspect/pkg/sources"
)

// app wires the configuration, cache, source registry, and resolver
// together for one command invocation.
type app struct {
	cfg      *config.Config
	store    cache.Cache
	registry *sources.Registry
	resolver *resolver.Resolver
}

// newApp loads configuration and constructs the resolution stack. With
// refresh set the response cache is bypassed for this invocation; the
// on-disk cache is left intact.
func newApp(ctx context.Context, configPath string, refresh bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := openCache(ctx, cfg, refresh)
	if err != nil {
		return nil, err
	}

	registry, err := sources.NewRegistry(cfg.SourceConfigs())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	clients := sources.NewClientCache(registry, sources.DefaultBuilder(sources.BuilderOptions{
		Cache:          store,
		CacheTTL:       cfg.CacheTTL(),
		DefaultTimeout: cfg.Timeout(),
	}))

	return &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		resolver: resolver.New(registry, clients, loggerFromContext(ctx)),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

// openCache constructs the configured cache backend.
func openCache(ctx context.Context, cfg *config.Config, refresh bool) (cache.Cache, error) {
	if refresh {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		})
	default:
		dir, err := cfg.CacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	}
}

// resolveVersion picks the version to operate on: the one given, or the
// latest published version when the argument was omitted.
func (a *app) resolveVersion(ctx context.Context, id, version string) (string, error) {
	if version != "" {
		return version, nil
	}
	versions, err := a.resolver.ListVersions(ctx, id)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", errors.New(errors.ErrCodeNotFound, "package %s has no published versions", id)
	}
	return versions[len(versions)-1], nil
}
