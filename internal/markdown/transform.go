package markdown

import "strings"

// DefaultHint is the fence hint given to code blocks that declare none.
// Undecorated fences in rustdoc comments are Rust snippets by convention.
const DefaultHint = "rust"

// hiddenLinePrefix marks doctest setup lines that compile under test but are
// hidden from rendered documentation. A bare "#" line is not a marker.
const hiddenLinePrefix = "# "

// Transformer applies the README publishing rules to a stream of events:
// untyped fences get the default hint and hidden doctest lines are dropped
// from fenced code. Every other event passes through untouched.
//
// A Transformer keeps track of whether it is inside a fenced code block, so
// one instance must see the events of exactly one document, in order.
type Transformer struct {
	hint        string
	inCodeBlock bool
}

// NewTransformer returns a Transformer tagging untyped fences with hint, or
// with DefaultHint when hint is empty.
func NewTransformer(hint string) *Transformer {
	if hint == "" {
		hint = DefaultHint
	}
	return &Transformer{hint: hint}
}

// InCodeBlock reports whether the last event seen opened a fenced code block
// that has not been closed yet.
func (t *Transformer) InCodeBlock() bool {
	return t.inCodeBlock
}

// Apply returns the rewritten form of ev. The result always has the same Kind.
func (t *Transformer) Apply(ev Event) Event {
	switch ev.Kind {
	case KindStart:
		if ev.Tag.Kind == TagCodeBlock && ev.Tag.CodeBlock == CodeFenced {
			t.inCodeBlock = true
			if ev.Tag.Info == "" {
				ev.Tag.Info = t.hint
			}
		}
	case KindEnd:
		if ev.Tag.Kind == TagCodeBlock && ev.Tag.CodeBlock == CodeFenced {
			t.inCodeBlock = false
		}
	case KindText:
		if t.inCodeBlock {
			ev.Text = StripHiddenLines(ev.Text)
		}
	}
	return ev
}

// StripHiddenLines removes every line starting with "# " and joins the
// remaining lines with "\n". A trailing newline is not kept.
func StripHiddenLines(code string) string {
	kept := make([]string, 0, strings.Count(code, "\n")+1)
	for _, line := range lines(code) {
		if strings.HasPrefix(line, hiddenLinePrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// lines splits s on "\n", dropping a "\r" before each separator and the empty
// remainder after a final newline.
func lines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
