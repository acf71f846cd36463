package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nuspect/nuspect/pkg/cache"
	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/httputil"
	"github.com/nuspect/nuspect/pkg/observability"
)

// Client provides shared HTTP functionality for all feed adapters.
// It handles caching, retry logic, authentication headers, and response
// size limits.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	prefix  string
	ttl     time.Duration
	headers map[string]string
}

// NewClient creates a Client bound to one source. The prefix namespaces
// cache keys (e.g. "nuget:nuget.org:"), ttl controls cache entry lifetime,
// and headers carry exactly one authentication scheme (or none for
// anonymous sources). Pass a [cache.NullCache] to disable caching.
func NewClient(c cache.Cache, prefix string, ttl, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		http:    NewHTTPClient(timeout),
		cache:   c,
		prefix:  prefix,
		ttl:     ttl,
		headers: headers,
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

// Cached retrieves a JSON value from cache or executes fetch and caches the
// result. The fetch function should populate v; on success, v is stored in
// the cache. Transient fetch failures are retried with backoff.
func (c *Client) Cached(ctx context.Context, key string, v any, fetch func() error) error {
	if data, ok, _ := c.cache.Get(ctx, c.prefix+key); ok {
		if json.Unmarshal(data, v) == nil {
			return nil
		}
		// Corrupt entry, fall through to a fresh fetch.
		_ = c.cache.Delete(ctx, c.prefix+key)
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, c.prefix+key, data, c.ttl)
	}
	return nil
}

// Retry runs fetch with the standard transient-failure backoff policy.
// Used for operations whose results must not be cached (package content).
func (c *Client) Retry(ctx context.Context, fetch func() error) error {
	return httputil.RetryWithBackoff(ctx, fetch)
}

// GetJSON performs a single HTTP GET and JSON-decodes the response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// GetBytes performs a single HTTP GET and returns the fully buffered body.
// Bodies larger than [MaxResponseSize] are rejected.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// +1 so a body exactly at the limit can be told apart from one over it.
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read body from %s", url))
	}
	if len(data) > MaxResponseSize {
		return nil, errors.New(errors.ErrCodeNetwork, "response from %s exceeds %d bytes", url, MaxResponseSize)
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	observability.HTTP().OnRequest(ctx, http.MethodGet, req.URL.Host, req.URL.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, req.URL.Host, req.URL.Path, err)
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url))
	}
	observability.HTTP().OnResponse(ctx, http.MethodGet, req.URL.Host, req.URL.Path,
		resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, url); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "resource not found: %s", url)
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "GET %s: status %d", url, code))
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", url, code)
	}
}
