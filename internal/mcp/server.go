package mcp

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jcdickinson/cargo-extract-readme/internal/docs"
	"github.com/jcdickinson/cargo-extract-readme/internal/readme"
)

//go:embed instructions.md
var instructions string

// Defaults are applied to every request; tool arguments override them.
type Defaults struct {
	Render  readme.Options
	Source  readme.Source
	Version string
}

// Loader produces the rustdoc JSON artifact for a request.
type Loader func(ctx context.Context, src readme.Source) (*docs.Crate, error)

type Server struct {
	mcpServer *server.MCPServer
	defaults  Defaults
	load      Loader
}

func NewServer(defaults Defaults) *Server {
	s := &Server{defaults: defaults}
	s.load = func(ctx context.Context, src readme.Source) (*docs.Crate, error) {
		return readme.Load(ctx, src, nil)
	}

	version := defaults.Version
	if version == "" {
		version = "0.1.0"
	}
	mcpServer := server.NewMCPServer(
		"cargo-extract-readme",
		version,
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// WithLoader sets a custom artifact loader (for testing).
func (s *Server) WithLoader(load Loader) *Server {
	s.load = load
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("extract_readme",
			mcp.WithDescription("Render a Rust crate's root documentation as a README in CommonMark. Give `crate` to use the docs.rs build of a published crate, `json_path` for an existing rustdoc JSON file, or `manifest_path` to build a local package with cargo."),
			mcp.WithString("crate",
				mcp.Description("Published crate as name or name@version (default version: latest)"),
			),
			mcp.WithString("json_path",
				mcp.Description("Path to a rustdoc JSON artifact (.json or .json.zst)"),
			),
			mcp.WithString("manifest_path",
				mcp.Description("Path to Cargo.toml of a local package to build"),
			),
			mcp.WithString("package",
				mcp.Description("Workspace package to document when building locally"),
			),
			mcp.WithString("default_hint",
				mcp.Description("Language for fenced code blocks without one (default \"rust\")"),
			),
			mcp.WithBoolean("resolve_links",
				mcp.Description("Turn intra-doc links into docs.rs URLs"),
			),
		),
		s.handleExtractReadme,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"readme://{crate}/{version}",
			"Crate README",
			mcp.WithTemplateDescription("README rendered from the docs.rs build of a published crate."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleExtractReadme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	src := s.defaults.Source
	src.Build.Packages = append([]string(nil), src.Build.Packages...)
	if v, ok := args["crate"].(string); ok {
		src.Crate = v
	}
	if v, ok := args["json_path"].(string); ok {
		src.JSONPath = v
	}
	if v, ok := args["manifest_path"].(string); ok {
		src.Build.ManifestPath = v
	}
	if v, ok := args["package"].(string); ok && v != "" {
		src.Build.Packages = []string{v}
	}
	if src.Crate == "" && src.JSONPath == "" && src.Build.ManifestPath == "" {
		return mcp.NewToolResultError("one of crate, json_path or manifest_path is required"), nil
	}

	opts := s.defaults.Render
	if v, ok := args["default_hint"].(string); ok && v != "" {
		opts.DefaultHint = v
	}
	if v, ok := args["resolve_links"].(bool); ok {
		opts.ResolveLinks = v
	}

	text, err := s.render(ctx, src, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to extract readme: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	trimmed := strings.TrimPrefix(uri, "readme://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" {
		return nil, fmt.Errorf("invalid resource URI: %s", uri)
	}

	src := s.defaults.Source
	src.JSONPath = ""
	src.Crate = parts[0] + "@" + parts[1]

	text, err := s.render(ctx, src, s.defaults.Render)
	if err != nil {
		return nil, fmt.Errorf("extracting readme: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

func (s *Server) render(ctx context.Context, src readme.Source, opts readme.Options) (string, error) {
	crate, err := s.load(ctx, src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := readme.Generate(&buf, crate, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) Shutdown(_ context.Context) error {
	return nil
}
