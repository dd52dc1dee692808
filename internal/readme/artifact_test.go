package readme

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jcdickinson/cargo-extract-readme/internal/build"
)

const artifact = `{"root": 0, "crate_version": "0.3.0", "format_version": 39,
 "index": {"0": {"id": 0, "crate_id": 0, "name": "demo", "docs": "Demo crate.", "links": {}}},
 "paths": {}, "external_crates": {}}`

func TestParseCrateSpec(t *testing.T) {
	t.Parallel()
	tests := []struct{ spec, name, version string }{
		{"serde", "serde", "latest"},
		{"serde@1.0.0", "serde", "1.0.0"},
		{"serde@", "serde", "latest"},
	}
	for _, tt := range tests {
		name, version := ParseCrateSpec(tt.spec)
		if name != tt.name || version != tt.version {
			t.Errorf("ParseCrateSpec(%q) = %q, %q", tt.spec, name, version)
		}
	}
}

func TestLoad_JSONPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "demo.json")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(context.Background(), Source{JSONPath: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := c.RootDocs(); got != "Demo crate." {
		t.Errorf("docs = %q", got)
	}
}

func TestLoad_Build(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.MkdirAll(filepath.Join(target, "doc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "doc", "demo.json"), []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(dir, "Cargo.toml")
	metadata := fmt.Sprintf(`{"packages": [{"id": "demo", "name": "demo", "manifest_path": %q,
	  "targets": [{"name": "demo", "kind": ["lib"]}]}],
	  "workspace_members": ["demo"], "target_directory": %q}`, manifest, target)

	var ran [][]string
	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		ran = append(ran, args)
		if slices.Contains(args, "metadata") {
			return []byte(metadata), nil
		}
		return nil, nil
	}
	b := build.New(build.Options{ManifestPath: manifest, Toolchain: "nightly"}).WithRunner(runner)

	c, err := Load(context.Background(), Source{}, b)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "demo" {
		t.Errorf("name = %q", c.Name())
	}
	if len(ran) != 2 || ran[1][0] != "+nightly" {
		t.Errorf("cargo calls = %v", ran)
	}
}
