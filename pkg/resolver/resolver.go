// Package resolver implements multi-source package resolution.
//
// Every operation walks the enabled sources in descending priority order and
// returns the first successful result. Failures are collected per source and
// only surface when every source has been tried: when all of them failed
// with transport errors the first one is returned verbatim (it is usually
// the most actionable), otherwise the failures collapse into a single
// all-sources-failed error naming the package.
package resolver

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/feeds"
	"github.com/nuspect/nuspect/pkg/nupkg"
	"github.com/nuspect/nuspect/pkg/observability"
	"github.com/nuspect/nuspect/pkg/sources"
)

// Resolver fans package operations out across the configured sources.
type Resolver struct {
	registry *sources.Registry
	clients  *sources.ClientCache
	logger   *log.Logger
}

// New creates a resolver. A nil logger falls back to the default.
func New(registry *sources.Registry, clients *sources.ClientCache, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{registry: registry, clients: clients, logger: logger}
}

// ListVersions returns all published versions of a package from the first
// source that answers, sorted ascending and deduplicated.
func (r *Resolver) ListVersions(ctx context.Context, id string) ([]string, error) {
	if err := errors.ValidateNuGetPackageID(id); err != nil {
		return nil, err
	}

	var versions []string
	err := r.eachSource(ctx, "versions", id, func(ctx context.Context, cfg sources.Config, feed feeds.Feed) error {
		v, err := feed.ListVersions(ctx, id)
		if err != nil {
			return err
		}
		versions = feeds.SortVersions(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Download fetches a package archive from the first source that has it.
// Sources configured native-only are skipped (not failed) when the version
// is only mirrored from an upstream. A downloaded archive that cannot be
// opened fails the whole resolution; corrupt content is not a reason to
// fall back to a lower-priority source.
func (r *Resolver) Download(ctx context.Context, id, version string) (*nupkg.Archive, error) {
	if err := errors.ValidateNuGetPackageID(id); err != nil {
		return nil, err
	}

	var archive *nupkg.Archive
	err := r.eachSource(ctx, "download", id, func(ctx context.Context, cfg sources.Config, feed feeds.Feed) error {
		if cfg.NativeOnly {
			if skip, err := r.skipNonNative(ctx, cfg, feed, id, version); err != nil {
				return err
			} else if skip {
				return errSkipped
			}
		}

		data, err := feed.Download(ctx, id, version)
		if err != nil {
			return err
		}
		if archive, err = nupkg.Open(data); err != nil {
			return &abortError{err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// Search queries the sources in priority order and returns the first
// non-empty result set, ordered by total downloads descending. A blank
// query returns no results without contacting any source.
func (r *Resolver) Search(ctx context.Context, query string, take int) ([]feeds.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var results []feeds.SearchResult
	answered := false
	err := r.eachSource(ctx, "search", query, func(ctx context.Context, cfg sources.Config, feed feeds.Feed) error {
		hits, err := feed.Search(ctx, query, take)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			answered = true
			return errSkipped // keep trying lower-priority sources
		}
		results = hits
		return nil
	})
	if err != nil {
		if answered {
			// At least one source answered cleanly with zero hits; an empty
			// result is the answer, not a resolution failure.
			return nil, nil
		}
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalDownloads > results[j].TotalDownloads
	})
	return results, nil
}

// errSkipped marks a source that was deliberately passed over (native-only
// filter, empty search result). Skips never surface to callers.
var errSkipped = stderrors.New("source skipped")

// abortError marks a failure that ends the source walk immediately: a
// lower-priority source cannot fix it, so trying one would only waste a
// network round trip. The wrapped error surfaces to the caller unchanged.
type abortError struct{ err error }

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

type sourceFailure struct {
	source  string
	err     error
	skipped bool
}

// eachSource runs fn against each enabled source in descending priority and
// stops at the first success. It owns attempt bookkeeping: operation ids,
// hooks, context cancellation between attempts, and failure aggregation.
func (r *Resolver) eachSource(ctx context.Context, op, pkg string, fn func(context.Context, sources.Config, feeds.Feed) error) error {
	enabled := r.registry.EnabledSources()
	if len(enabled) == 0 {
		return errors.New(errors.ErrCodeNoEnabledSources, "no enabled package sources configured")
	}

	opID := uuid.NewString()
	logger := r.logger.With("op", op, "op_id", opID, "package", pkg)

	var failures []sourceFailure
	for _, cfg := range enabled {
		if err := ctx.Err(); err != nil {
			observability.Resolver().OnResolved(ctx, op, pkg, len(failures), err)
			return errors.Wrap(errors.ErrCodeTimeout, err, "%s %s cancelled", op, pkg)
		}

		observability.Resolver().OnSourceAttempt(ctx, op, cfg.Name, pkg)
		start := time.Now()

		feed, err := r.clients.ClientFor(cfg.Name)
		if err == nil {
			err = fn(ctx, cfg, feed)
		}
		observability.Resolver().OnSourceResult(ctx, op, cfg.Name, pkg, time.Since(start), err)

		var abort *abortError
		switch {
		case err == nil:
			logger.Debug("resolved", "source", cfg.Name, "attempts", len(failures)+1)
			observability.Resolver().OnResolved(ctx, op, pkg, len(failures)+1, nil)
			return nil
		case stderrors.As(err, &abort):
			logger.Debug("source failed fatally", "source", cfg.Name, "error", abort.err)
			observability.Resolver().OnResolved(ctx, op, pkg, len(failures)+1, abort.err)
			return abort.err
		case stderrors.Is(err, errSkipped):
			logger.Debug("source skipped", "source", cfg.Name)
			failures = append(failures, sourceFailure{source: cfg.Name, skipped: true})
		default:
			logger.Debug("source failed", "source", cfg.Name, "error", err)
			failures = append(failures, sourceFailure{source: cfg.Name, err: err})
		}
	}

	err := aggregate(op, pkg, failures)
	observability.Resolver().OnResolved(ctx, op, pkg, len(failures), err)
	return err
}

// aggregate collapses per-source failures into the error callers see.
// All-transport failures return the first verbatim. Anything else (config
// errors mixed in, skipped sources) becomes one generic error naming the
// package, with every underlying failure attached as the cause.
func aggregate(op, pkg string, failures []sourceFailure) error {
	real := make([]error, 0, len(failures))
	allTransport := true
	for _, f := range failures {
		if f.skipped {
			allTransport = false
			continue
		}
		real = append(real, f.err)
		if !errors.IsTransport(f.err) {
			allTransport = false
		}
	}
	if allTransport && len(real) > 0 {
		return real[0]
	}
	return errors.Wrap(errors.ErrCodeAllSourcesFailed, stderrors.Join(real...),
		"%s: package %s could not be resolved from any configured source", op, pkg)
}

// skipNonNative applies a source's native-only filter. A version the feed
// cannot classify fails the source; a version mirrored from an upstream
// skips it.
func (r *Resolver) skipNonNative(ctx context.Context, cfg sources.Config, feed feeds.Feed, id, version string) (bool, error) {
	checker, ok := feed.(feeds.NativeChecker)
	if !ok {
		return false, nil // filter is meaningless for this protocol
	}
	native, err := checker.IsNativeVersion(ctx, id, version)
	if err != nil {
		return false, err
	}
	if !native {
		r.logger.Debug("native-only source skipped", "source", cfg.Name, "package", id, "version", version)
	}
	return !native, nil
}
