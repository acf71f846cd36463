package nuget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nuspect/nuspect/pkg/cache"
	"github.com/nuspect/nuspect/pkg/errors"
	"github.com/nuspect/nuspect/pkg/feeds"
)

// newTestFeed starts a fake NuGet v3 feed with a service index, a flat
// container, and a search service.
func newTestFeed(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/v3/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"resources": [
				{"@id": "%s/flat/", "@type": "PackageBaseAddress/3.0.0"},
				{"@id": "%s/search", "@type": "SearchQueryService/3.5.0"}
			]
		}`, srv.URL, srv.URL)
	})

	base := feeds.NewClient(cache.NewNullCache(), "test:", time.Hour, time.Second, nil)
	return NewClient(base, "test-feed", srv.URL+"/v3/index.json")
}

func TestListVersions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/flat/newtonsoft.json/index.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"versions": []string{"12.0.1", "13.0.1"}})
	})
	c := newTestFeed(t, mux)

	versions, err := c.ListVersions(context.Background(), "Newtonsoft.Json")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 || versions[1] != "13.0.1" {
		t.Errorf("versions = %v", versions)
	}
}

func TestListVersionsLowercasesID(t *testing.T) {
	var requested string
	mux := http.NewServeMux()
	mux.HandleFunc("/flat/", func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"versions": []string{"1.0.0"}})
	})
	c := newTestFeed(t, mux)

	if _, err := c.ListVersions(context.Background(), "MixedCase.Package"); err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if requested != "/flat/mixedcase.package/index.json" {
		t.Errorf("requested path = %q, want lowercased flat-container path", requested)
	}
}

func TestListVersionsNotFound(t *testing.T) {
	mux := http.NewServeMux() // no flat container handler: 404
	c := newTestFeed(t, mux)

	_, err := c.ListVersions(context.Background(), "Missing.Package")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", errors.GetCode(err))
	}
}

func TestDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/flat/foo.bar/1.2.3/foo.bar.1.2.3.nupkg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip-bytes"))
	})
	c := newTestFeed(t, mux)

	data, err := c.Download(context.Background(), "Foo.Bar", "1.2.3")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "zip-bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "json" {
			t.Errorf("q = %q, want json", got)
		}
		if got := r.URL.Query().Get("prerelease"); got != "true" {
			t.Errorf("prerelease = %q, want true", got)
		}
		fmt.Fprint(w, `{
			"totalHits": 2,
			"data": [
				{"id": "A", "version": "1.0.0", "authors": "Jane, Smith", "tags": ["json", "fast"], "totalDownloads": 10},
				{"id": "B", "version": "2.0.0", "authors": ["Solo"], "totalDownloads": 5}
			]
		}`)
	})
	c := newTestFeed(t, mux)

	results, err := c.Search(context.Background(), "json", 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	// authors reported as a comma-separated string
	if len(results[0].Authors) != 2 || results[0].Authors[0] != "Jane" {
		t.Errorf("authors = %v", results[0].Authors)
	}
	// tags reported as an array
	if len(results[0].Tags) != 2 || results[0].Tags[1] != "fast" {
		t.Errorf("tags = %v", results[0].Tags)
	}
	// authors reported as an array
	if len(results[1].Authors) != 1 || results[1].Authors[0] != "Solo" {
		t.Errorf("authors = %v", results[1].Authors)
	}
}

func TestMissingPackageBaseAddress(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/v3/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resources": []}`)
	})

	base := feeds.NewClient(cache.NewNullCache(), "test:", time.Hour, time.Second, nil)
	c := NewClient(base, "broken", srv.URL+"/v3/index.json")

	_, err := c.ListVersions(context.Background(), "Any.Package")
	if err == nil {
		t.Fatal("expected error for index without PackageBaseAddress")
	}
}

func TestServiceIndexMemoized(t *testing.T) {
	indexCalls := 0
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/v3/index.json", func(w http.ResponseWriter, r *http.Request) {
		indexCalls++
		fmt.Fprintf(w, `{"resources": [{"@id": "%s/flat/", "@type": "PackageBaseAddress/3.0.0"}]}`, srv.URL)
	})
	mux.HandleFunc("/flat/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"versions": []string{"1.0.0"}})
	})

	base := feeds.NewClient(cache.NewNullCache(), "test:", time.Hour, time.Second, nil)
	c := NewClient(base, "test-feed", srv.URL+"/v3/index.json")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.ListVersions(ctx, "pkg"); err != nil {
			t.Fatalf("ListVersions: %v", err)
		}
	}
	if indexCalls != 1 {
		t.Errorf("service index fetched %d times, want 1", indexCalls)
	}
}
