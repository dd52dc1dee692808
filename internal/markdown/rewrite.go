package markdown

import (
	"slices"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RewriteLinks rewrites inline link destinations and reference definitions
// found in linkMap, leaving the rest of src byte for byte as it was. Keys are
// destinations as written in the source (for rustdoc, intra-doc paths such
// as "crate::Foo"). Code and raw HTML are never touched.
func RewriteLinks(src string, linkMap map[string]string) string {
	if len(linkMap) == 0 {
		return src
	}

	doc := gm.Parse([]byte(src), gmparser.NewWithExtensions(gmparser.NoExtensions))

	// Unique destinations in document order
	seen := make(map[string]bool)
	var dests []string
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		var dest string
		switch n := node.(type) {
		case *ast.Link:
			dest = string(n.Destination)
		case *ast.Image:
			dest = string(n.Destination)
		default:
			return ast.GoToNext
		}
		if _, ok := linkMap[dest]; ok && !seen[dest] {
			seen[dest] = true
			dests = append(dests, dest)
		}
		return ast.GoToNext
	})

	masked := maskCode(src)
	var edits []edit
	for _, d := range dests {
		for _, old := range []string{"](" + d + ")", "](<" + d + ">)"} {
			for off := 0; ; {
				i := strings.Index(masked[off:], old)
				if i < 0 {
					break
				}
				off += i
				edits = append(edits, edit{start: off, end: off + len(old), repl: "](" + linkMap[d] + ")"})
				off += len(old)
			}
		}
	}

	// Reference definitions are not links in the tree, so match them by
	// line: "[label]: destination".
	off := 0
	for _, line := range strings.SplitAfter(masked, "\n") {
		lineStart := off
		off += len(line)
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}
		_, dest, ok := strings.Cut(trimmed, "]: ")
		if !ok {
			continue
		}
		dest, _, _ = strings.Cut(strings.TrimSpace(dest), " ")
		newDest, ok := linkMap[dest]
		if !ok {
			continue
		}
		i := strings.Index(line, "]: "+dest)
		start := lineStart + i + len("]: ")
		edits = append(edits, edit{start: start, end: start + len(dest), repl: newDest})
	}
	return applyEdits(src, edits)
}

type edit struct {
	start, end int
	repl       string
}

// applyEdits replaces the byte ranges of edits in src. Overlapping edits
// after the first are dropped.
func applyEdits(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}
	slices.SortFunc(edits, func(a, b edit) int { return a.start - b.start })
	var b strings.Builder
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		b.WriteString(src[pos:e.start])
		b.WriteString(e.repl)
		pos = e.end
	}
	b.WriteString(src[pos:])
	return b.String()
}

// maskCode returns a copy of src in which the contents of code blocks, code
// spans and raw HTML are blanked out with NUL bytes. Offsets are preserved.
func maskCode(src string) string {
	buf := []byte(src)
	mask := func(seg text.Segment) {
		for i := seg.Start; i < seg.Stop && i < len(buf); i++ {
			if buf[i] != '\n' {
				buf[i] = 0
			}
		}
	}
	maskLines := func(lines *text.Segments) {
		for i := 0; i < lines.Len(); i++ {
			mask(lines.At(i))
		}
	}

	root := goldmark.New().Parser().Parse(text.NewReader([]byte(src)))
	_ = gast.Walk(root, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *gast.FencedCodeBlock, *gast.CodeBlock, *gast.HTMLBlock:
			maskLines(n.Lines())
			return gast.WalkSkipChildren, nil
		case *gast.CodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gast.Text); ok {
					mask(t.Segment)
				}
			}
			return gast.WalkSkipChildren, nil
		case *gast.RawHTML:
			maskLines(n.Segments)
			return gast.WalkSkipChildren, nil
		}
		return gast.WalkContinue, nil
	})
	return string(buf)
}

// ResolveFrom returns a BrokenLinkFunc that resolves unresolved reference
// labels through linkMap. Keys are compared the way link labels are, so the
// rustdoc key "`Foo`" answers the shortcut link [`foo`].
func ResolveFrom(linkMap map[string]string) BrokenLinkFunc {
	byLabel := make(map[string]string, len(linkMap))
	for k, v := range linkMap {
		byLabel[normalizeLabel(k)] = v
	}
	return func(link BrokenLink) (Replacement, bool) {
		dest, ok := byLabel[link.Reference]
		if !ok {
			return Replacement{}, false
		}
		return Replacement{Dest: dest}, true
	}
}
