package azdo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nuspect/nuspect/pkg/cache"
	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/feeds"
)

func newTestFeed(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	base := feeds.NewClient(cache.NewNullCache(), "test:", time.Hour, time.Second, nil)
	return NewClient(base, "corp-feed", srv.URL, "my-feed")
}

// packagesHandler answers the packageNameQuery lookup with one package.
func packagesHandler(t *testing.T, payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		if got := r.URL.Query().Get("protocolType"); got != "NuGet" {
			t.Errorf("protocolType = %q", got)
		}
		fmt.Fprint(w, payload)
	}
}

func TestListVersions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/packages", packagesHandler(t, `{
		"count": 2,
		"value": [
			{"id": "guid-1", "name": "Corp.Utils.Extras"},
			{"id": "guid-2", "name": "Corp.Utils"}
		]
	}`))
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/packages/guid-2/versions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 2, "value": [
			{"version": "1.0.0"},
			{"version": "1.1.0", "isLatest": true}
		]}`)
	})
	c := newTestFeed(t, mux)

	// The prefix-matched sibling package must not shadow the exact match.
	versions, err := c.ListVersions(context.Background(), "Corp.Utils")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 || versions[1] != "1.1.0" {
		t.Errorf("versions = %v", versions)
	}
}

func TestListVersionsPackageNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/packages", packagesHandler(t, `{"count": 0, "value": []}`))
	c := newTestFeed(t, mux)

	_, err := c.ListVersions(context.Background(), "Missing.Package")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/nuget/packages/corp.utils/versions/1.0.0/content",
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("nupkg-bytes"))
		})
	c := newTestFeed(t, mux)

	data, err := c.Download(context.Background(), "Corp.Utils", "1.0.0")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "nupkg-bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestIsNativeVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/packages", packagesHandler(t, `{
		"count": 1,
		"value": [{"id": "guid-1", "name": "Corp.Utils"}]
	}`))
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/packages/guid-1/versions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 2, "value": [
			{"version": "1.0.0", "sourceChain": []},
			{"version": "2.0.0", "sourceChain": [{"name": "nuget.org"}]}
		]}`)
	})
	c := newTestFeed(t, mux)
	ctx := context.Background()

	native, err := c.IsNativeVersion(ctx, "Corp.Utils", "1.0.0")
	if err != nil {
		t.Fatalf("IsNativeVersion: %v", err)
	}
	if !native {
		t.Error("version without sourceChain should be native")
	}

	native, err = c.IsNativeVersion(ctx, "Corp.Utils", "2.0.0")
	if err != nil {
		t.Fatalf("IsNativeVersion: %v", err)
	}
	if native {
		t.Error("version with sourceChain should not be native")
	}

	_, err = c.IsNativeVersion(ctx, "Corp.Utils", "9.9.9")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("unknown version: code = %s, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestSearchPicksLatestVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/packaging/feeds/my-feed/packages", packagesHandler(t, `{
		"count": 1,
		"value": [{
			"id": "guid-1",
			"name": "Corp.Utils",
			"description": "internal helpers",
			"versions": [
				{"version": "1.0.0"},
				{"version": "1.1.0", "isLatest": true},
				{"version": "1.2.0-beta"}
			]
		}]
	}`))
	c := newTestFeed(t, mux)

	results, err := c.Search(context.Background(), "Corp", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Version != "1.1.0" {
		t.Errorf("version = %q, want the isLatest one", results[0].Version)
	}
	if results[0].Description != "internal helpers" {
		t.Errorf("description = %q", results[0].Description)
	}
}
