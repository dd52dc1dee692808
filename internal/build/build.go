// Package build drives cargo to produce a rustdoc JSON artifact for a
// package.
package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoLibTarget is returned when the package to document has no library
// target, and so no crate root to take documentation from.
var ErrNoLibTarget = errors.New("package has no library target")

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options selects the package and features to document. The fields mirror
// cargo's own flags.
type Options struct {
	ManifestPath      string
	Packages          []string
	Workspace         bool
	Exclude           []string
	Features          []string
	AllFeatures       bool
	NoDefaultFeatures bool
	Toolchain         string
}

// Builder runs cargo. Cargo's diagnostics go to Stderr.
type Builder struct {
	Options Options
	Stderr  io.Writer

	run Runner
}

// New returns a Builder running the real cargo binary.
func New(opts Options) *Builder {
	b := &Builder{Options: opts, Stderr: os.Stderr}
	b.run = b.execRun
	return b
}

// WithRunner sets a custom command runner (for testing).
func (b *Builder) WithRunner(run Runner) *Builder {
	b.run = run
	return b
}

func (b *Builder) execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stderr = b.Stderr
	return cmd.Output()
}

// Metadata describes a cargo workspace, as printed by cargo metadata.
type Metadata struct {
	Packages         []Package `json:"packages"`
	WorkspaceMembers []string  `json:"workspace_members"`
	WorkspaceRoot    string    `json:"workspace_root"`
	TargetDirectory  string    `json:"target_directory"`
}

type Package struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	ManifestPath string   `json:"manifest_path"`
	Targets      []Target `json:"targets"`
}

type Target struct {
	Name string   `json:"name"`
	Kind []string `json:"kind"`
}

// Members returns the workspace member packages in metadata order.
func (m *Metadata) Members() []Package {
	var out []Package
	for _, p := range m.Packages {
		if slices.Contains(m.WorkspaceMembers, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// Package returns the package called name.
func (m *Metadata) Package(name string) (Package, bool) {
	for _, p := range m.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// Owner returns the package whose manifest is manifestPath.
func (m *Metadata) Owner(manifestPath string) (Package, bool) {
	want := filepath.Clean(manifestPath)
	for _, p := range m.Packages {
		if filepath.Clean(p.ManifestPath) == want {
			return p, true
		}
	}
	return Package{}, false
}

// LibName returns the crate name of the package's library target as rustdoc
// names its output: with dashes turned into underscores.
func (p Package) LibName() (string, bool) {
	for _, t := range p.Targets {
		for _, k := range t.Kind {
			switch k {
			case "lib", "rlib", "dylib", "cdylib", "staticlib", "proc-macro":
				return strings.ReplaceAll(t.Name, "-", "_"), true
			}
		}
	}
	return "", false
}

func (b *Builder) featureArgs() []string {
	var args []string
	if b.Options.AllFeatures {
		args = append(args, "--all-features")
	}
	if b.Options.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if len(b.Options.Features) > 0 {
		args = append(args, "--features", strings.Join(b.Options.Features, ","))
	}
	return args
}

// Metadata runs cargo metadata for the configured manifest.
func (b *Builder) Metadata(ctx context.Context) (*Metadata, error) {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if b.Options.ManifestPath != "" {
		args = append(args, "--manifest-path", b.Options.ManifestPath)
	}
	args = append(args, b.featureArgs()...)

	slog.Debug("running cargo", "args", args)
	out, err := b.run(ctx, "cargo", args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't execute cargo metadata command: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("couldn't execute cargo metadata command: parsing output: %w", err)
	}
	return &meta, nil
}

// manifestPath returns the absolute manifest path cargo will use.
func (b *Builder) manifestPath() (string, error) {
	path := b.Options.ManifestPath
	if path == "" {
		path = "Cargo.toml"
	}
	return filepath.Abs(path)
}

// Partition splits the workspace members into the packages selected by the
// options and the rest.
func (b *Builder) Partition(meta *Metadata) (selected, excluded []Package) {
	members := meta.Members()
	switch {
	case b.Options.Workspace:
		for _, p := range members {
			if slices.Contains(b.Options.Exclude, p.Name) {
				excluded = append(excluded, p)
				continue
			}
			selected = append(selected, p)
		}
	case len(b.Options.Packages) > 0:
		for _, p := range members {
			if slices.Contains(b.Options.Packages, p.Name) {
				selected = append(selected, p)
				continue
			}
			excluded = append(excluded, p)
		}
	default:
		manifest, err := b.manifestPath()
		if owner, ok := meta.Owner(manifest); err == nil && ok {
			selected = append(selected, owner)
			for _, p := range members {
				if p.ID != owner.ID {
					excluded = append(excluded, p)
				}
			}
			return selected, excluded
		}
		selected = members
	}
	return selected, excluded
}

// target returns the package rustdoc will document: the last --package
// given, else the package owning the manifest.
func (b *Builder) target(meta *Metadata) (Package, error) {
	if n := len(b.Options.Packages); n > 0 {
		name := b.Options.Packages[n-1]
		p, ok := meta.Package(name)
		if !ok {
			return Package{}, fmt.Errorf("package %q not found in workspace", name)
		}
		return p, nil
	}
	manifest, err := b.manifestPath()
	if err != nil {
		return Package{}, fmt.Errorf("resolving manifest path: %w", err)
	}
	p, ok := meta.Owner(manifest)
	if !ok {
		return Package{}, fmt.Errorf("%s is a virtual manifest; select a package with --package", manifest)
	}
	return p, nil
}

// RustdocArgs returns the cargo arguments that build the JSON artifact.
func (b *Builder) RustdocArgs() []string {
	var args []string
	if b.Options.Toolchain != "" {
		args = append(args, "+"+b.Options.Toolchain)
	}
	args = append(args, "rustdoc")
	if b.Options.ManifestPath != "" {
		args = append(args, "--manifest-path", b.Options.ManifestPath)
	}
	if n := len(b.Options.Packages); n > 0 {
		args = append(args, "--package", b.Options.Packages[n-1])
	}
	args = append(args, b.featureArgs()...)
	return append(args, "--lib", "--", "-Z", "unstable-options", "--output-format", "json")
}

// Build runs rustdoc and returns the path of the JSON artifact it wrote.
func (b *Builder) Build(ctx context.Context, meta *Metadata) (string, error) {
	pkg, err := b.target(meta)
	if err != nil {
		return "", err
	}
	lib, ok := pkg.LibName()
	if !ok {
		return "", fmt.Errorf("%s: %w", pkg.Name, ErrNoLibTarget)
	}

	args := b.RustdocArgs()
	slog.Debug("running cargo", "args", args)
	if _, err := b.run(ctx, "cargo", args...); err != nil {
		return "", fmt.Errorf("couldn't build rustdoc json for %s: %w", pkg.Name, err)
	}
	return filepath.Join(meta.TargetDirectory, "doc", lib+".json"), nil
}
