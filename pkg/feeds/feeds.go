// Package feeds provides shared plumbing for the remote feed adapters.
//
// Each feed protocol (NuGet v3, Azure DevOps Artifacts) lives in its own
// subpackage and embeds [Client], which handles caching, retry logic,
// authentication headers, and response size limits. The [Feed] interface is
// what the multi-source resolver works against; it deliberately contains
// only the three operations the resolver fans out across sources.
package feeds

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default timeout for feed requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps response bodies read from untrusted feeds (100MB).
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent identifies nuspect to remote feeds.
	UserAgent = "nuspect/1.0"

	// APIKeyHeader carries an API key on standard NuGet feeds.
	APIKeyHeader = "X-NuGet-ApiKey"
)

// ErrNotModified is reserved for conditional requests. Not currently used.
var ErrNotModified = errors.New("not modified")

// Feed is one remote package source the resolver can try.
// Implementations must be safe for concurrent use.
type Feed interface {
	// Name returns the configured source name this client is bound to.
	Name() string

	// ListVersions returns all published versions of a package, in the
	// feed's natural order.
	ListVersions(ctx context.Context, id string) ([]string, error)

	// Download fetches the package archive, fully buffered.
	Download(ctx context.Context, id, version string) ([]byte, error)

	// Search queries the feed, returning up to take results.
	Search(ctx context.Context, query string, take int) ([]SearchResult, error)
}

// NativeChecker is implemented by feeds that can distinguish natively hosted
// versions from versions proxied through the feed from an upstream source.
type NativeChecker interface {
	// IsNativeVersion reports whether the given version is hosted directly
	// on the feed (true) or mirrored from an upstream source (false).
	IsNativeVersion(ctx context.Context, id, version string) (bool, error)
}

// SearchResult is one package hit from a feed search, carrying the manifest
// scalars the feed reports. Meta-package classification happens later.
type SearchResult struct {
	ID             string   `json:"id"`
	Version        string   `json:"version"`
	Description    string   `json:"description,omitempty"`
	Authors        []string `json:"authors,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ProjectURL     string   `json:"project_url,omitempty"`
	LicenseURL     string   `json:"license_url,omitempty"`
	TotalDownloads int64    `json:"total_downloads"`
}

// NewHTTPClient creates an HTTP client with the given timeout.
// A zero timeout falls back to [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// BasicAuth builds an Authorization header value from username and password.
// Azure DevOps personal access tokens use an empty username.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
