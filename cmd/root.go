package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/cargo-extract-readme/internal/build"
	"github.com/jcdickinson/cargo-extract-readme/internal/config"
	"github.com/jcdickinson/cargo-extract-readme/internal/logging"
	"github.com/jcdickinson/cargo-extract-readme/internal/readme"
)

const version = "0.1.0"

// rootOptions holds the command-line flags. Flags shared with subcommands
// are persistent.
type rootOptions struct {
	manifestPath      string
	packages          []string
	workspace         bool
	exclude           []string
	features          []string
	allFeatures       bool
	noDefaultFeatures bool
	toolchain         string
	output            string

	verbose int
	quiet   int

	jsonPath     string
	crate        string
	defaultHint  string
	resolveLinks bool
	noCache      bool
}

// settings is the configuration after command-line overrides.
type settings struct {
	cfg    *config.Config
	logger *slog.Logger
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	st := &settings{}

	cmd := &cobra.Command{
		Use:           "cargo-extract-readme",
		Short:         "Generate a README from a crate's root documentation",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, opts, st)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.manifestPath, "manifest-path", "", "path to Cargo.toml")
	f.StringArrayVarP(&opts.packages, "package", "p", nil, "package to document")
	f.BoolVar(&opts.workspace, "workspace", false, "select all packages in the workspace")
	f.BoolVar(&opts.workspace, "all", false, "alias for --workspace")
	f.StringArrayVar(&opts.exclude, "exclude", nil, "exclude packages from the selection")
	f.BoolVar(&opts.allFeatures, "all-features", false, "activate all available features")
	f.BoolVar(&opts.noDefaultFeatures, "no-default-features", false, "do not activate the default feature")
	f.StringVarP(&opts.output, "output", "o", "", "file to write to (\"-\" for stdout)")
	f.StringVar(&opts.jsonPath, "json", "", "use an existing rustdoc JSON file instead of building")
	f.StringVar(&opts.crate, "crate", "", "use the docs.rs build of a published crate (name[@version])")
	_ = f.MarkHidden("all")
	cmd.MarkFlagsMutuallyExclusive("json", "crate")

	pf := cmd.PersistentFlags()
	pf.StringSliceVarP(&opts.features, "features", "F", nil, "space or comma separated list of features to activate")
	pf.StringVarP(&opts.toolchain, "toolchain", "t", "", "toolchain used to build rustdoc JSON (default from config, \"nightly\")")
	pf.CountVarP(&opts.verbose, "verbose", "v", "more output per occurrence")
	pf.CountVarP(&opts.quiet, "quiet", "q", "less output per occurrence")
	pf.StringVar(&opts.defaultHint, "default-hint", "", "language for fenced code blocks without one (default from config, \"rust\")")
	pf.BoolVar(&opts.resolveLinks, "resolve-links", false, "turn intra-doc links into docs.rs URLs")
	pf.BoolVar(&opts.noCache, "no-cache", false, "always download from docs.rs")

	cmd.AddCommand(newMCPCmd(opts, st))
	return cmd
}

// Execute runs the command line. Cargo runs subcommands as
// "cargo-extract-readme extract-readme ...", so that leading argument is
// dropped.
func Execute() {
	rootCmd.SetArgs(cargoArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cargoArgs(args []string) []string {
	if len(args) > 0 && args[0] == "extract-readme" {
		return args[1:]
	}
	return args
}

// load reads the config file and environment, then applies any flags given
// explicitly on the command line, and installs the logger.
func (st *settings) load(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("toolchain") {
		cfg.Toolchain = opts.toolchain
	}
	if flags.Changed("default-hint") {
		cfg.DefaultHint = opts.defaultHint
	}
	if flags.Changed("resolve-links") {
		cfg.ResolveLinks = opts.resolveLinks
	}
	if flags.Changed("features") {
		cfg.Features = config.ParseFeatures(strings.Join(opts.features, " "))
	}

	logger, err := logging.New(logging.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Verbosity: opts.verbose - opts.quiet,
		Writer:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	st.cfg = cfg
	st.logger = logger
	logger.Debug("args", "args", os.Args, "config", fmt.Sprintf("%+v", *cfg))
	return nil
}

func (opts *rootOptions) source(cfg *config.Config) readme.Source {
	return readme.Source{
		JSONPath: opts.jsonPath,
		Crate:    opts.crate,
		NoCache:  opts.noCache,
		BaseURL:  cfg.DocsRs.BaseURL,
		Build: build.Options{
			ManifestPath:      opts.manifestPath,
			Packages:          opts.packages,
			Workspace:         opts.workspace,
			Exclude:           opts.exclude,
			Features:          cfg.Features,
			AllFeatures:       opts.allFeatures,
			NoDefaultFeatures: opts.noDefaultFeatures,
			Toolchain:         cfg.Toolchain,
		},
	}
}

func (st *settings) renderOptions() readme.Options {
	return readme.Options{
		DefaultHint:  st.cfg.DefaultHint,
		ResolveLinks: st.cfg.ResolveLinks,
		BaseURL:      st.cfg.DocsRs.BaseURL,
		Logger:       st.logger,
	}
}

func runExtract(cmd *cobra.Command, opts *rootOptions, st *settings) error {
	ctx := cmd.Context()

	crate, err := readme.Load(ctx, opts.source(st.cfg), nil)
	if err != nil {
		return err
	}

	renderOpts := st.renderOptions()
	text, err := readme.Prepare(crate, &renderOpts)
	if err != nil {
		return err
	}

	out, err := openOutput(opts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	if err := readme.Render(bw, text, renderOpts); err != nil {
		out.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("%w: %w", readme.ErrWrite, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", readme.ErrWrite, err)
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns stdout for "" and "-", otherwise creates or truncates
// the named file.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open output file: %w", err)
	}
	return f, nil
}
