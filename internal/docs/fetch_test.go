package docs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func docsRsServer(t *testing.T, body []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/crate/demo/0.1.0/json" && r.URL.Path != "/crate/demo/latest/json" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "cargo-extract-readme/") {
			t.Errorf("user agent = %q", ua)
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRustdocJSON(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := docsRsServer(t, compress(t, []byte(numericIDs)), &hits)

	f := &Fetcher{BaseURL: srv.URL}
	data, err := f.FetchRustdocJSON(context.Background(), "demo", "")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != numericIDs {
		t.Errorf("unexpected body %q", data)
	}
}

func TestFetchRustdocJSON_NotFound(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := docsRsServer(t, nil, &hits)

	f := &Fetcher{BaseURL: srv.URL}
	_, err := f.FetchRustdocJSON(context.Background(), "nope", "1.0.0")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want 404", err)
	}
}

func TestGet_CachesPinnedVersions(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	var hits atomic.Int32
	srv := docsRsServer(t, compress(t, []byte(numericIDs)), &hits)
	f := &Fetcher{BaseURL: srv.URL}

	for range 2 {
		c, err := f.Get(context.Background(), "demo", "0.1.0", true)
		if err != nil {
			t.Fatal(err)
		}
		if c.Name() != "demo" {
			t.Errorf("name = %q", c.Name())
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("docs.rs hit %d times, want 1", n)
	}
	if !HasCrateCache("demo", "0.1.0") {
		t.Error("cache file missing")
	}
}

func TestGet_NoCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	var hits atomic.Int32
	srv := docsRsServer(t, compress(t, []byte(numericIDs)), &hits)
	f := &Fetcher{BaseURL: srv.URL}

	for range 2 {
		if _, err := f.Get(context.Background(), "demo", "latest", true); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.Get(context.Background(), "demo", "0.1.0", false); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("docs.rs hit %d times, want 3", n)
	}
	if HasCrateCache("demo", "0.1.0") || HasCrateCache("demo", "latest") {
		t.Error("nothing should have been cached")
	}
}
