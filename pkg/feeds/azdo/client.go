package azdo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/feeds"
)

const apiVersion = "6.0-preview.1"

// Client talks to one Azure DevOps Artifacts feed.
type Client struct {
	*feeds.Client
	name    string
	baseURL string // https://feeds.dev.azure.com/{org}
	feedID  string
}

// NewClient creates a feed client bound to the named source.
// baseURL is the organization's feeds endpoint; feedID names the feed.
func NewClient(base *feeds.Client, name, baseURL, feedID string) *Client {
	return &Client{
		Client:  base,
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		feedID:  feedID,
	}
}

// Name returns the configured source name.
func (c *Client) Name() string { return c.name }

// ListVersions returns all published versions of a package. Azure DevOps
// addresses versions by the package's feed-internal id, so the package is
// looked up by name first.
func (c *Client) ListVersions(ctx context.Context, id string) ([]string, error) {
	pkg, err := c.findPackage(ctx, id)
	if err != nil {
		return nil, err
	}

	versions, err := c.versions(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Version)
	}
	return out, nil
}

// Download fetches the .nupkg content, fully buffered.
func (c *Client) Download(ctx context.Context, id, version string) ([]byte, error) {
	contentURL := fmt.Sprintf("%s/_apis/packaging/feeds/%s/nuget/packages/%s/versions/%s/content?api-version=%s",
		c.baseURL, c.feedID, url.PathEscape(strings.ToLower(id)), url.PathEscape(version), apiVersion)

	var data []byte
	err := c.Retry(ctx, func() error {
		var fetchErr error
		data, fetchErr = c.GetBytes(ctx, contentURL)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Search lists packages whose names match the query. Azure DevOps does not
// report download counts, so results stay in feed order.
func (c *Client) Search(ctx context.Context, query string, take int) ([]feeds.SearchResult, error) {
	q := url.Values{}
	q.Set("packageNameQuery", query)
	q.Set("protocolType", "NuGet")
	q.Set("$top", fmt.Sprint(take))
	q.Set("includeAllVersions", "false")
	q.Set("api-version", apiVersion)

	listURL := fmt.Sprintf("%s/_apis/packaging/feeds/%s/packages?%s", c.baseURL, c.feedID, q.Encode())

	var resp packageList
	err := c.Cached(ctx, "search:"+strings.ToLower(query)+":"+fmt.Sprint(take), &resp, func() error {
		return c.GetJSON(ctx, listURL, &resp)
	})
	if err != nil {
		return nil, err
	}

	results := make([]feeds.SearchResult, 0, len(resp.Value))
	for _, p := range resp.Value {
		r := feeds.SearchResult{ID: p.Name, Description: p.Description}
		for _, v := range p.Versions {
			if v.IsLatest {
				r.Version = v.Version
				break
			}
		}
		if r.Version == "" && len(p.Versions) > 0 {
			r.Version = p.Versions[len(p.Versions)-1].Version
		}
		results = append(results, r)
	}
	return results, nil
}

// IsNativeVersion reports whether a version was published directly to the
// feed. A version with no provenance chain is native; anything with a chain
// was proxied from an upstream source.
func (c *Client) IsNativeVersion(ctx context.Context, id, version string) (bool, error) {
	pkg, err := c.findPackage(ctx, id)
	if err != nil {
		return false, err
	}
	versions, err := c.versions(ctx, pkg.ID)
	if err != nil {
		return false, err
	}
	for _, v := range versions {
		if strings.EqualFold(v.Version, version) {
			return len(v.SourceChain) == 0, nil
		}
	}
	return false, errors.New(errors.ErrCodeNotFound, "version %s of %s not found in feed %s",
		version, id, c.feedID)
}

// findPackage resolves a package name to its feed-internal descriptor.
func (c *Client) findPackage(ctx context.Context, id string) (*packageInfo, error) {
	q := url.Values{}
	q.Set("packageNameQuery", id)
	q.Set("protocolType", "NuGet")
	q.Set("api-version", apiVersion)

	listURL := fmt.Sprintf("%s/_apis/packaging/feeds/%s/packages?%s", c.baseURL, c.feedID, q.Encode())

	var resp packageList
	err := c.Cached(ctx, "package:"+strings.ToLower(id), &resp, func() error {
		return c.GetJSON(ctx, listURL, &resp)
	})
	if err != nil {
		return nil, err
	}

	// packageNameQuery is a prefix match; insist on the exact name.
	for i := range resp.Value {
		if strings.EqualFold(resp.Value[i].Name, id) {
			return &resp.Value[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "package %s not found in feed %s", id, c.feedID)
}

func (c *Client) versions(ctx context.Context, packageID string) ([]versionInfo, error) {
	versionsURL := fmt.Sprintf("%s/_apis/packaging/feeds/%s/packages/%s/versions?api-version=%s",
		c.baseURL, c.feedID, url.PathEscape(packageID), apiVersion)

	var resp versionList
	err := c.Cached(ctx, "versions:"+packageID, &resp, func() error {
		return c.GetJSON(ctx, versionsURL, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

type packageList struct {
	Count int           `json:"count"`
	Value []packageInfo `json:"value"`
}

type packageInfo struct {
	ID          string        `json:"id"` // feed-internal GUID
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Versions    []versionInfo `json:"versions"`
}

type versionList struct {
	Count int           `json:"count"`
	Value []versionInfo `json:"value"`
}

type versionInfo struct {
	Version     string        `json:"version"`
	IsLatest    bool          `json:"isLatest"`
	SourceChain []sourceChain `json:"sourceChain"`
}

type sourceChain struct {
	Name string `json:"name"`
}

// Ensure Client implements both resolver-facing interfaces.
var (
	_ feeds.Feed          = (*Client)(nil)
	_ feeds.NativeChecker = (*Client)(nil)
)
