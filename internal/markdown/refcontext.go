package markdown

import (
	"strings"

	"github.com/yuin/goldmark/parser"
)

// refContext wraps a goldmark parser context so that lookups of undefined
// reference labels go through a BrokenLinkFunc. goldmark only asks the
// context for labels that appear in link position, which are exactly the
// full, collapsed and shortcut reference links of the document.
type refContext struct {
	parser.Context

	src      string
	onBroken BrokenLinkFunc
	cursor   int
	// retry is the label of the last unresolved full reference. goldmark
	// looks its brackets up once more as a shortcut link.
	retry string
}

func newRefContext(src []byte, onBroken BrokenLinkFunc) *refContext {
	return &refContext{
		Context:  parser.NewContext(),
		src:      string(src),
		onBroken: onBroken,
	}
}

// Reference resolves label against the document's definitions first. Each
// undefined occurrence is handed to the callback.
func (c *refContext) Reference(label string) (parser.Reference, bool) {
	retry := c.retry
	c.retry = ""
	if ref, ok := c.Context.Reference(label); ok {
		return ref, true
	}
	if c.onBroken == nil || label == "" {
		return nil, false
	}
	if retry != "" && retry == label {
		return nil, false
	}

	link := c.locate(label)
	repl, ok := c.onBroken(link)
	if !ok {
		if link.Type == LinkReference && !followedByLink(c.src, link.Span.End) {
			c.retry = label
		}
		return nil, false
	}
	return parser.NewReference([]byte(label), []byte(repl.Dest), []byte(repl.Title)), true
}

// followedByLink reports whether the brackets ending at end are themselves
// followed by a destination or another label, in which case goldmark does not
// retry them as a shortcut.
func followedByLink(src string, end int) bool {
	return end >= 0 && end < len(src) && (src[end] == '(' || src[end] == '[')
}

// locate finds the bracketed occurrence of label, scanning forward from the
// previous match. Parsing visits links in document order, so the first match
// after the cursor is almost always the right one.
func (c *refContext) locate(label string) BrokenLink {
	link := BrokenLink{Span: Span{Start: -1, End: -1}, Type: LinkShortcut, Reference: label}
	start, end := findLabel(c.src, label, c.cursor)
	if start < 0 {
		start, end = findLabel(c.src, label, 0)
	}
	if start < 0 {
		return link
	}
	c.cursor = end
	link.Span = Span{Start: start, End: end}
	switch {
	case strings.HasPrefix(c.src[end:], "[]"):
		link.Type = LinkCollapsed
	case start > 0 && c.src[start-1] == ']':
		link.Type = LinkReference
	}
	return link
}

// findLabel returns the byte range of the first "[...]" at or after from whose
// normalised content equals label, or -1, -1.
func findLabel(src, label string, from int) (int, int) {
	for i := from; i < len(src); i++ {
		if src[i] != '[' || (i > 0 && src[i-1] == '\\') {
			continue
		}
		j := strings.IndexAny(src[i+1:], "[]")
		if j < 0 {
			return -1, -1
		}
		j += i + 1
		if src[j] != ']' {
			continue
		}
		if normalizeLabel(src[i+1:j]) == label {
			return i, j + 1
		}
	}
	return -1, -1
}

// normalizeLabel matches goldmark's link label normalisation: surrounding
// whitespace trimmed, inner runs collapsed to one space, case folded.
func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
