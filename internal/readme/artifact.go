package readme

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jcdickinson/cargo-extract-readme/internal/build"
	"github.com/jcdickinson/cargo-extract-readme/internal/docs"
)

// Source says where the rustdoc JSON comes from. JSONPath wins over Crate,
// which wins over building the local package.
type Source struct {
	JSONPath string
	Crate    string // name or name@version, fetched from docs.rs
	NoCache  bool
	BaseURL  string
	Build    build.Options
}

// ParseCrateSpec splits "name@version". A missing version means latest.
func ParseCrateSpec(spec string) (name, version string) {
	name, version, _ = strings.Cut(spec, "@")
	if version == "" {
		version = "latest"
	}
	return name, version
}

// Load produces the rustdoc JSON artifact described by src. builder may be
// nil, in which case one running the real cargo is created.
func Load(ctx context.Context, src Source, builder *build.Builder) (*docs.Crate, error) {
	switch {
	case src.JSONPath != "":
		slog.Debug("loading rustdoc json", "path", src.JSONPath)
		return docs.Load(src.JSONPath)
	case src.Crate != "":
		name, version := ParseCrateSpec(src.Crate)
		slog.Debug("fetching rustdoc json", "crate", name, "version", version)
		f := &docs.Fetcher{BaseURL: src.BaseURL}
		return f.Get(ctx, name, version, !src.NoCache)
	}

	if builder == nil {
		builder = build.New(src.Build)
	}
	meta, err := builder.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	selected, excluded := builder.Partition(meta)
	slog.Debug("packages", "selected", packageNames(selected), "excluded", len(excluded))

	path, err := builder.Build(ctx, meta)
	if err != nil {
		return nil, err
	}
	return docs.Load(path)
}

func packageNames(pkgs []build.Package) []string {
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	return names
}
