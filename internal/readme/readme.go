// Package readme turns a crate's root documentation into a README.
package readme

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jcdickinson/cargo-extract-readme/internal/cmark"
	"github.com/jcdickinson/cargo-extract-readme/internal/docs"
	"github.com/jcdickinson/cargo-extract-readme/internal/markdown"
)

// ErrWrite wraps failures writing the README.
var ErrWrite = errors.New("couldn't write output")

type Options struct {
	// DefaultHint tags fenced code blocks that declare no language.
	DefaultHint string
	// ResolveLinks turns intra-doc links into documentation URLs.
	ResolveLinks bool
	// BaseURL is where resolved links point; docs.DefaultBaseURL when empty.
	BaseURL string
	// Links maps link targets to URLs. Prepare fills it in when
	// ResolveLinks is set.
	Links map[string]string

	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Prepare returns the crate's root documentation and, when link resolution
// is enabled, records the root item's intra-doc links in opts.
func Prepare(c *docs.Crate, opts *Options) (string, error) {
	text, err := c.RootDocs()
	if err != nil {
		return "", err
	}
	if !opts.ResolveLinks {
		return text, nil
	}
	root, err := c.RootItem()
	if err != nil {
		return "", err
	}
	r := &docs.Resolver{Crate: c, BaseURL: opts.BaseURL}
	opts.Links = r.ResolveDocLinks(root)
	opts.logger().Debug("resolved intra-doc links", "count", len(opts.Links))
	return text, nil
}

// Generate writes the README of c to w.
func Generate(w io.Writer, c *docs.Crate, opts Options) error {
	text, err := Prepare(c, &opts)
	if err != nil {
		return err
	}
	return Render(w, text, opts)
}

// Render parses text, applies the publishing rules and writes the result to
// w one event at a time. Broken links are logged and never fail the render.
func Render(w io.Writer, text string, opts Options) error {
	logger := opts.logger()
	ctx := context.Background()

	resolve := markdown.ResolveFrom(opts.Links)
	onBroken := func(link markdown.BrokenLink) (markdown.Replacement, bool) {
		if repl, ok := resolve(link); ok {
			logger.Debug("resolved_link", "reference", link.Reference, "dest", repl.Dest)
			return repl, true
		}
		logger.Warn("broken_link",
			"span", formatSpan(link.Span),
			"link_type", link.Type.String(),
			"reference", link.Reference,
		)
		return markdown.Replacement{}, false
	}

	if len(opts.Links) > 0 {
		text = markdown.RewriteLinks(text, opts.Links)
	}

	tr := markdown.NewTransformer(opts.DefaultHint)
	debug := logger.Enabled(ctx, slog.LevelDebug)

	var (
		state cmark.State
		err   error
	)
	for ev := range markdown.Parse(text, onBroken).Events() {
		if debug {
			logger.Debug("event", "event", ev.String())
		}
		state, err = cmark.Resume(w, tr.Apply(ev), state)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	if err := state.Finalize(w); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func formatSpan(s markdown.Span) string {
	if s.Start < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}
