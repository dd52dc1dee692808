package docs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultBaseURL is where published rustdoc JSON is downloaded from.
const DefaultBaseURL = "https://docs.rs"

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher downloads rustdoc JSON from docs.rs or a mirror of it.
type Fetcher struct {
	BaseURL string
	Client  *http.Client
}

// FetchRustdocJSON downloads and decompresses rustdoc JSON. The version
// "latest" is resolved by docs.rs via redirect.
func (f *Fetcher) FetchRustdocJSON(ctx context.Context, name, version string) ([]byte, error) {
	if version == "" {
		version = "latest"
	}
	base := strings.TrimSuffix(f.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := f.Client
	if client == nil {
		client = httpClient
	}

	url := fmt.Sprintf("%s/crate/%s/%s/json", base, name, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "cargo-extract-readme/0.1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("docs.rs returned %d for %s/%s: %s", resp.StatusCode, name, version, string(body))
	}

	// docs.rs returns zstd-compressed JSON
	decoder, err := zstd.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing rustdoc JSON: %w", err)
	}

	return data, nil
}

// Get returns the parsed artifact for name@version, reading and filling the
// local cache for pinned versions when useCache is set.
func (f *Fetcher) Get(ctx context.Context, name, version string, useCache bool) (*Crate, error) {
	cache := useCache && Cacheable(version)
	if cache && HasCrateCache(name, version) {
		if data, err := LoadCrateCache(name, version); err == nil {
			return Parse(data)
		}
	}

	data, err := f.FetchRustdocJSON(ctx, name, version)
	if err != nil {
		return nil, err
	}
	crate, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if cache {
		if err := SaveCrateCache(data, name, version); err != nil {
			slog.Warn("failed to cache rustdoc json", "crate", name, "version", version, "error", err)
		}
	}
	return crate, nil
}
