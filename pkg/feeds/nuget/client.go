package nuget

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/feeds"
)

// Client talks to one NuGet v3 feed.
type Client struct {
	*feeds.Client
	name     string
	indexURL string

	mu  sync.Mutex
	res *resources
}

// NewClient creates a feed client bound to the named source.
// indexURL is the feed's service index URL.
func NewClient(base *feeds.Client, name, indexURL string) *Client {
	return &Client{Client: base, name: name, indexURL: indexURL}
}

// Name returns the configured source name.
func (c *Client) Name() string { return c.name }

// ListVersions returns all published versions in the feed's natural
// (ascending) order.
func (c *Client) ListVersions(ctx context.Context, id string) ([]string, error) {
	base, err := c.packageBase(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(id)
	var resp versionsResponse
	err = c.Cached(ctx, "versions:"+lower, &resp, func() error {
		return c.GetJSON(ctx, base+lower+"/index.json", &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// Download fetches the .nupkg content, fully buffered. Package content is
// never cached; each resolution call owns its own copy.
func (c *Client) Download(ctx context.Context, id, version string) ([]byte, error) {
	base, err := c.packageBase(ctx)
	if err != nil {
		return nil, err
	}

	lower, ver := strings.ToLower(id), strings.ToLower(version)
	contentURL := fmt.Sprintf("%s%s/%s/%s.%s.nupkg", base, lower, ver, lower, ver)

	var data []byte
	err = c.Retry(ctx, func() error {
		var fetchErr error
		data, fetchErr = c.GetBytes(ctx, contentURL)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Search queries the feed's search service, returning up to take results.
func (c *Client) Search(ctx context.Context, query string, take int) ([]feeds.SearchResult, error) {
	searchURL, err := c.searchService(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("take", fmt.Sprint(take))
	q.Set("prerelease", "true")

	var resp searchResponse
	err = c.Cached(ctx, "search:"+query+":"+fmt.Sprint(take), &resp, func() error {
		return c.GetJSON(ctx, searchURL+"?"+q.Encode(), &resp)
	})
	if err != nil {
		return nil, err
	}

	results := make([]feeds.SearchResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, feeds.SearchResult{
			ID:             d.ID,
			Version:        d.Version,
			Description:    d.Description,
			Authors:        toStrings(d.Authors),
			Tags:           toStrings(d.Tags),
			ProjectURL:     d.ProjectURL,
			LicenseURL:     d.LicenseURL,
			TotalDownloads: d.TotalDownloads,
		})
	}
	return results, nil
}

// packageBase returns the flat-container base URL, with a trailing slash.
func (c *Client) packageBase(ctx context.Context) (string, error) {
	res, err := c.discover(ctx)
	if err != nil {
		return "", err
	}
	return res.packageBase, nil
}

func (c *Client) searchService(ctx context.Context) (string, error) {
	res, err := c.discover(ctx)
	if err != nil {
		return "", err
	}
	return res.search, nil
}

type resources struct {
	packageBase string
	search      string
}

// discover fetches and memoizes the feed's service index. The mutex keeps
// concurrent first use from issuing duplicate index requests.
func (c *Client) discover(ctx context.Context) (*resources, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res != nil {
		return c.res, nil
	}

	var index serviceIndex
	err := c.Cached(ctx, "index", &index, func() error {
		return c.GetJSON(ctx, c.indexURL, &index)
	})
	if err != nil {
		return nil, err
	}

	res := &resources{}
	for _, r := range index.Resources {
		switch {
		case strings.HasPrefix(r.Type, "PackageBaseAddress/"):
			res.packageBase = ensureSlash(r.ID)
		case strings.HasPrefix(r.Type, "SearchQueryService") && res.search == "":
			res.search = strings.TrimSuffix(r.ID, "/")
		}
	}
	if res.packageBase == "" {
		return nil, errors.New(errors.ErrCodeNetwork,
			"service index %s has no PackageBaseAddress resource", c.indexURL)
	}

	c.res = res
	return res, nil
}

func ensureSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// toStrings normalizes a JSON field that feeds report either as a string
// (possibly comma-separated) or as an array of strings.
func toStrings(v any) []string {
	switch val := v.(type) {
	case string:
		var out []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

type serviceIndex struct {
	Resources []serviceResource `json:"resources"`
}

type serviceResource struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
}

type versionsResponse struct {
	Versions []string `json:"versions"`
}

type searchResponse struct {
	TotalHits int64        `json:"totalHits"`
	Data      []searchItem `json:"data"`
}

type searchItem struct {
	ID             string `json:"id"`
	Version        string `json:"version"`
	Description    string `json:"description"`
	Authors        any    `json:"authors"`
	Tags           any    `json:"tags"`
	ProjectURL     string `json:"projectUrl"`
	LicenseURL     string `json:"licenseUrl"`
	TotalDownloads int64  `json:"totalDownloads"`
}

// Ensure Client implements the resolver-facing interface.
var _ feeds.Feed = (*Client)(nil)
