package markdown

import (
	"bytes"
	"iter"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// LinkType tells how an unresolved reference was written.
type LinkType uint8

const (
	// LinkReference is a full reference link: [text][label].
	LinkReference LinkType = iota + 1
	// LinkCollapsed is a collapsed reference link: [label][].
	LinkCollapsed
	// LinkShortcut is a shortcut reference link: [label].
	LinkShortcut
)

func (t LinkType) String() string {
	switch t {
	case LinkReference:
		return "Reference"
	case LinkCollapsed:
		return "Collapsed"
	case LinkShortcut:
		return "Shortcut"
	default:
		return "Unknown"
	}
}

// Span is a byte range in the parsed text. Start is -1 when the range could
// not be located.
type Span struct {
	Start int
	End   int
}

// BrokenLink describes a reference link whose label has no definition.
type BrokenLink struct {
	Span      Span
	Type      LinkType
	Reference string
}

// Replacement is the target a BrokenLinkFunc may supply for a broken link.
type Replacement struct {
	Dest  string
	Title string
}

// BrokenLinkFunc is called for each unresolved reference label. Returning
// false keeps the link as literal text.
type BrokenLinkFunc func(BrokenLink) (Replacement, bool)

// Source is a parsed document whose events can be consumed once.
type Source struct {
	src      []byte
	doc      ast.Node
	consumed bool
}

// Parse parses text as CommonMark without extensions. onBroken, when not nil,
// is called synchronously while parsing, in document order, once for each
// reference link whose label has no definition.
func Parse(doc string, onBroken BrokenLinkFunc) *Source {
	src := []byte(doc)
	pc := newRefContext(src, onBroken)
	root := goldmark.New().Parser().Parse(text.NewReader(src), parser.WithContext(pc))
	return &Source{src: src, doc: root}
}

// Events yields the document's events in order. The sequence is not
// restartable: every call after the first yields nothing.
func (s *Source) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if s.consumed {
			return
		}
		s.consumed = true
		w := walker{src: s.src, yield: yield}
		_ = ast.Walk(s.doc, w.visit)
	}
}

type walker struct {
	src   []byte
	yield func(Event) bool
}

func (w *walker) emit(events ...Event) ast.WalkStatus {
	for _, ev := range events {
		if !w.yield(ev) {
			return ast.WalkStop
		}
	}
	return ast.WalkContinue
}

// pair emits Start(tag) on entry and End(tag) on exit.
func (w *walker) pair(tag Tag, entering bool) ast.WalkStatus {
	if entering {
		return w.emit(Start(tag))
	}
	return w.emit(End(tag))
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := n.(type) {
	case *ast.Document, *ast.TextBlock:
		return ast.WalkContinue, nil
	case *ast.Paragraph:
		return w.pair(Tag{Kind: TagParagraph}, entering), nil
	case *ast.Heading:
		return w.pair(Tag{Kind: TagHeading, Level: n.Level}, entering), nil
	case *ast.Blockquote:
		return w.pair(Tag{Kind: TagBlockQuote}, entering), nil
	case *ast.List:
		tag := Tag{
			Kind:    TagList,
			Ordered: n.IsOrdered(),
			Start:   n.Start,
			Marker:  n.Marker,
			Tight:   n.IsTight,
		}
		return w.pair(tag, entering), nil
	case *ast.ListItem:
		return w.pair(Tag{Kind: TagItem}, entering), nil
	case *ast.ThematicBreak:
		if entering {
			return w.emit(Rule()), nil
		}
	case *ast.CodeBlock:
		tag := Tag{Kind: TagCodeBlock, CodeBlock: CodeIndented}
		if !entering {
			return w.emit(End(tag)), nil
		}
		return w.emit(Start(tag), Text(w.lines(n.Lines()))), nil
	case *ast.FencedCodeBlock:
		code := w.lines(n.Lines())
		var info string
		if n.Info != nil {
			info = string(n.Info.Segment.Value(w.src))
		}
		tag := Tag{
			Kind:      TagCodeBlock,
			CodeBlock: CodeFenced,
			Info:      info,
			Fence:     fenceFor(code, info),
		}
		if !entering {
			return w.emit(End(tag)), nil
		}
		return w.emit(Start(tag), Text(code)), nil
	case *ast.HTMLBlock:
		if !entering {
			return ast.WalkContinue, nil
		}
		html := w.lines(n.Lines())
		if n.HasClosure() {
			html += string(n.ClosureLine.Value(w.src))
		}
		return w.emit(HTML(html)), nil
	case *ast.Text:
		if !entering {
			return ast.WalkContinue, nil
		}
		events := []Event{Text(string(n.Segment.Value(w.src)))}
		switch {
		case n.HardLineBreak():
			events = append(events, HardBreak())
		case n.SoftLineBreak():
			events = append(events, SoftBreak())
		}
		return w.emit(events...), nil
	case *ast.String:
		if entering {
			return w.emit(Text(string(n.Value))), nil
		}
	case *ast.CodeSpan:
		if !entering {
			return ast.WalkContinue, nil
		}
		if w.emit(Code(w.codeSpan(n))) == ast.WalkStop {
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	case *ast.Emphasis:
		kind := TagEmphasis
		if n.Level >= 2 {
			kind = TagStrong
		}
		return w.pair(Tag{Kind: kind}, entering), nil
	case *ast.Link:
		tag := Tag{Kind: TagLink, Dest: string(n.Destination), Title: string(n.Title)}
		return w.pair(tag, entering), nil
	case *ast.Image:
		tag := Tag{Kind: TagImage, Dest: string(n.Destination), Title: string(n.Title)}
		return w.pair(tag, entering), nil
	case *ast.AutoLink:
		if !entering {
			return ast.WalkContinue, nil
		}
		tag := Tag{Kind: TagLink, Dest: string(n.URL(w.src)), Autolink: true}
		if w.emit(Start(tag), Text(string(n.Label(w.src))), End(tag)) == ast.WalkStop {
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	case *ast.RawHTML:
		if entering {
			return w.emit(InlineHTML(w.lines(n.Segments))), nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *walker) lines(segments *text.Segments) string {
	var b strings.Builder
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		b.Write(seg.Value(w.src))
	}
	return b.String()
}

// codeSpan joins the raw content of a code span, turning line endings into
// spaces the way CommonMark renders them.
func (w *walker) codeSpan(n *ast.CodeSpan) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		v := t.Segment.Value(w.src)
		if bytes.HasSuffix(v, []byte("\n")) {
			b.Write(v[:len(v)-1])
			b.WriteByte(' ')
			continue
		}
		b.Write(v)
	}
	return b.String()
}

// fenceFor returns the shortest fence that cannot be closed by a line of code.
// Tildes are used when the info string itself contains a backtick.
func fenceFor(code, info string) string {
	char := "`"
	if strings.Contains(info, "`") {
		char = "~"
	}
	longest := 0
	for _, line := range lines(code) {
		trimmed := strings.TrimLeft(line, " ")
		run := len(trimmed) - len(strings.TrimLeft(trimmed, char))
		longest = max(longest, run)
	}
	return strings.Repeat(char, max(3, longest+1))
}
