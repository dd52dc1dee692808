package build

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const workspaceJSON = `{
  "packages": [
    {"id": "alpha 0.1.0", "name": "alpha", "version": "0.1.0", "manifest_path": "/ws/alpha/Cargo.toml",
     "targets": [{"name": "alpha-core", "kind": ["lib"]}, {"name": "alpha", "kind": ["bin"]}]},
    {"id": "beta 0.2.0", "name": "beta", "version": "0.2.0", "manifest_path": "/ws/beta/Cargo.toml",
     "targets": [{"name": "beta", "kind": ["proc-macro"]}]},
    {"id": "tool 0.1.0", "name": "tool", "version": "0.1.0", "manifest_path": "/ws/tool/Cargo.toml",
     "targets": [{"name": "tool", "kind": ["bin"]}]}
  ],
  "workspace_members": ["alpha 0.1.0", "beta 0.2.0", "tool 0.1.0"],
  "workspace_root": "/ws",
  "target_directory": "/ws/target"
}`

type call struct {
	name string
	args []string
}

type fakeCargo struct {
	calls []call
	fail  string
}

func (f *fakeCargo) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name, args})
	if f.fail != "" && slices.Contains(args, f.fail) {
		return nil, errors.New("exit status 101")
	}
	if slices.Contains(args, "metadata") {
		return []byte(workspaceJSON), nil
	}
	return nil, nil
}

func newBuilder(opts Options) (*Builder, *fakeCargo) {
	fake := &fakeCargo{}
	return New(opts).WithRunner(fake.run), fake
}

func names(pkgs []Package) []string {
	var out []string
	for _, p := range pkgs {
		out = append(out, p.Name)
	}
	return out
}

func TestMetadata_ForwardsFlags(t *testing.T) {
	t.Parallel()
	b, fake := newBuilder(Options{
		ManifestPath: "/ws/alpha/Cargo.toml",
		Features:     []string{"a", "b"},
		AllFeatures:  true,
	})
	meta, err := b.Metadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Packages) != 3 || meta.TargetDirectory != "/ws/target" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	want := []string{"metadata", "--format-version", "1", "--no-deps",
		"--manifest-path", "/ws/alpha/Cargo.toml", "--all-features", "--features", "a,b"}
	if got := fake.calls[0].args; !slices.Equal(got, want) {
		t.Errorf("args = %v\nwant %v", got, want)
	}
}

func TestMetadata_Failure(t *testing.T) {
	t.Parallel()
	b, fake := newBuilder(Options{})
	fake.fail = "metadata"
	_, err := b.Metadata(context.Background())
	if err == nil || !strings.Contains(err.Error(), "couldn't execute cargo metadata command") {
		t.Errorf("err = %v", err)
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		opts         Options
		wantSelected []string
		wantExcluded []string
	}{
		{
			name:         "workspace with exclude",
			opts:         Options{Workspace: true, Exclude: []string{"tool"}},
			wantSelected: []string{"alpha", "beta"},
			wantExcluded: []string{"tool"},
		},
		{
			name:         "packages",
			opts:         Options{Packages: []string{"beta"}},
			wantSelected: []string{"beta"},
			wantExcluded: []string{"alpha", "tool"},
		},
		{
			name:         "manifest owner",
			opts:         Options{ManifestPath: "/ws/alpha/Cargo.toml"},
			wantSelected: []string{"alpha"},
			wantExcluded: []string{"beta", "tool"},
		},
		{
			name:         "virtual manifest",
			opts:         Options{ManifestPath: "/ws/Cargo.toml"},
			wantSelected: []string{"alpha", "beta", "tool"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, _ := newBuilder(tt.opts)
			meta, err := b.Metadata(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			selected, excluded := b.Partition(meta)
			if got := names(selected); !slices.Equal(got, tt.wantSelected) {
				t.Errorf("selected = %v, want %v", got, tt.wantSelected)
			}
			if got := names(excluded); !slices.Equal(got, tt.wantExcluded) {
				t.Errorf("excluded = %v, want %v", got, tt.wantExcluded)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	b, fake := newBuilder(Options{
		ManifestPath:      "/ws/Cargo.toml",
		Packages:          []string{"beta", "alpha"},
		NoDefaultFeatures: true,
		Toolchain:         "nightly",
	})
	meta, err := b.Metadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	path, err := b.Build(context.Background(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/ws/target", "doc", "alpha_core.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	want := []string{"+nightly", "rustdoc", "--manifest-path", "/ws/Cargo.toml", "--package", "alpha",
		"--no-default-features", "--lib", "--", "-Z", "unstable-options", "--output-format", "json"}
	last := fake.calls[len(fake.calls)-1]
	if last.name != "cargo" || !slices.Equal(last.args, want) {
		t.Errorf("args = %v\nwant %v", last.args, want)
	}
}

func TestBuild_ProcMacro(t *testing.T) {
	t.Parallel()
	b, _ := newBuilder(Options{ManifestPath: "/ws/beta/Cargo.toml"})
	meta, _ := b.Metadata(context.Background())
	path, err := b.Build(context.Background(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "beta.json" {
		t.Errorf("path = %q", path)
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no lib target", func(t *testing.T) {
		t.Parallel()
		b, _ := newBuilder(Options{Packages: []string{"tool"}})
		meta, _ := b.Metadata(context.Background())
		if _, err := b.Build(context.Background(), meta); !errors.Is(err, ErrNoLibTarget) {
			t.Errorf("err = %v, want ErrNoLibTarget", err)
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		t.Parallel()
		b, _ := newBuilder(Options{Packages: []string{"gamma"}})
		meta, _ := b.Metadata(context.Background())
		if _, err := b.Build(context.Background(), meta); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("virtual manifest", func(t *testing.T) {
		t.Parallel()
		b, _ := newBuilder(Options{ManifestPath: "/ws/Cargo.toml"})
		meta, _ := b.Metadata(context.Background())
		if _, err := b.Build(context.Background(), meta); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("rustdoc fails", func(t *testing.T) {
		t.Parallel()
		b, fake := newBuilder(Options{Packages: []string{"alpha"}})
		meta, _ := b.Metadata(context.Background())
		fake.fail = "rustdoc"
		if _, err := b.Build(context.Background(), meta); err == nil {
			t.Error("expected error")
		}
	})
}
