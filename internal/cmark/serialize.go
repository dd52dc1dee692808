// Package cmark writes markdown events back out as CommonMark, one event at a
// time. The writer keeps no hidden state: everything it needs to continue is
// carried in a State value that the caller threads from one call to the next.
package cmark

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jcdickinson/cargo-extract-readme/internal/markdown"
)

type containerKind uint8

const (
	containerQuote containerKind = iota + 1
	containerItem
	containerCode
)

type container struct {
	kind   containerKind
	prefix string
	tight  bool
}

type list struct {
	ordered bool
	next    int
	marker  byte
	tight   bool
}

// State is the serializer's position in the output. The zero value is the
// state before the first event. States share backing storage but are never
// mutated once returned, so an older State stays valid.
type State struct {
	containers []container
	lists      []list

	newlines int  // line breaks owed before the next output
	started  bool // something has been written
	midLine  bool // the current line has output, prefixes included
	dirty    bool // the current line has content beyond prefixes and markers

	inCodeBlock bool
	fence       string
	inHeading   bool
	headingHash bool // heading text so far ends in '#'
}

// InCodeBlock reports whether the last event opened a code block that is
// still open.
func (s State) InCodeBlock() bool {
	return s.inCodeBlock
}

// Resume writes ev to w and returns the state to pass with the next event.
// A write error is returned as is; the returned state is then undefined.
func Resume(w io.Writer, ev markdown.Event, st State) (State, error) {
	p := printer{w: w, State: st}
	p.event(ev)
	return p.State, p.err
}

// Finalize ends the last line of the document.
func (s State) Finalize(w io.Writer) error {
	if !s.started || !s.midLine {
		return nil
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type printer struct {
	State
	w   io.Writer
	err error
}

func (p *printer) event(ev markdown.Event) {
	switch ev.Kind {
	case markdown.KindStart:
		p.start(ev.Tag)
	case markdown.KindEnd:
		p.end(ev.Tag)
	case markdown.KindText:
		p.write(ev.Text)
	case markdown.KindCode:
		p.write(codeSpan(ev.Text))
	case markdown.KindInlineHTML:
		p.write(ev.Text)
	case markdown.KindHTML:
		p.block()
		p.write(strings.TrimRight(ev.Text, "\n"))
		p.newlines = p.gap()
	case markdown.KindSoftBreak:
		if p.inHeading {
			p.write(" ")
			return
		}
		p.flush()
		p.newline()
	case markdown.KindHardBreak:
		if p.inHeading {
			p.write(" ")
			return
		}
		p.write("\\")
		p.newline()
	case markdown.KindRule:
		p.block()
		p.write("***")
		p.newlines = p.gap()
	}
}

func (p *printer) start(tag markdown.Tag) {
	switch tag.Kind {
	case markdown.TagParagraph:
		p.block()
	case markdown.TagHeading:
		p.block()
		p.write(strings.Repeat("#", max(tag.Level, 1)) + " ")
		p.inHeading = true
	case markdown.TagBlockQuote:
		p.block()
		p.open(container{kind: containerQuote, prefix: "> "})
	case markdown.TagCodeBlock:
		p.block()
		p.inCodeBlock = true
		if tag.CodeBlock != markdown.CodeFenced {
			p.open(container{kind: containerCode, prefix: "    "})
			return
		}
		p.fence = tag.Fence
		if p.fence == "" {
			p.fence = "```"
		}
		p.write(p.fence + tag.Info)
		p.newlines = 1
	case markdown.TagList:
		if p.dirty && p.newlines == 0 {
			p.newlines = 1
		}
		p.flush()
		l := list{ordered: tag.Ordered, next: tag.Start, marker: tag.Marker, tight: tag.Tight}
		if l.marker == 0 {
			l.marker = '-'
			if l.ordered {
				l.marker = '.'
			}
		}
		p.lists = append(p.lists[:len(p.lists):len(p.lists)], l)
	case markdown.TagItem:
		p.item()
	case markdown.TagEmphasis:
		p.write("*")
	case markdown.TagStrong:
		p.write("**")
	case markdown.TagLink:
		if tag.Autolink {
			p.write("<")
			return
		}
		p.write("[")
	case markdown.TagImage:
		p.write("![")
	}
}

func (p *printer) end(tag markdown.Tag) {
	switch tag.Kind {
	case markdown.TagParagraph:
		p.newlines = p.gap()
	case markdown.TagHeading:
		// A trailing '#' would read as the closing sequence.
		if p.headingHash {
			p.write(" #")
		}
		p.inHeading = false
		p.headingHash = false
		p.newlines = p.gap()
	case markdown.TagBlockQuote:
		p.close()
		p.newlines = p.gap()
	case markdown.TagCodeBlock:
		p.inCodeBlock = false
		if tag.CodeBlock != markdown.CodeFenced {
			p.close()
			p.newlines = p.gap()
			return
		}
		if p.midLine && p.newlines == 0 {
			p.newlines = 1
		}
		p.write(p.fence)
		p.fence = ""
		p.newlines = p.gap()
	case markdown.TagList:
		if len(p.lists) > 0 {
			p.lists = p.lists[:len(p.lists)-1]
		}
		p.newlines = p.gap()
	case markdown.TagItem:
		tight := p.gap() == 1
		p.close()
		p.newlines = 2
		if tight {
			p.newlines = 1
		}
	case markdown.TagEmphasis:
		p.write("*")
	case markdown.TagStrong:
		p.write("**")
	case markdown.TagLink:
		if tag.Autolink {
			p.write(">")
			return
		}
		p.write("](" + destination(tag.Dest) + title(tag.Title) + ")")
	case markdown.TagImage:
		p.write("](" + destination(tag.Dest) + title(tag.Title) + ")")
	}
}

// item writes the marker of a new list item and opens its container.
func (p *printer) item() {
	if p.dirty && p.newlines == 0 {
		p.newlines = 1
	}
	p.flush()

	l := list{marker: '-', tight: true}
	if n := len(p.lists); n > 0 {
		p.lists = slices.Clone(p.lists)
		l = p.lists[n-1]
		if l.ordered {
			p.lists[n-1].next++
		}
	}
	marker := string(l.marker) + " "
	if l.ordered {
		marker = fmt.Sprintf("%d%c ", l.next, l.marker)
	}

	if !p.midLine {
		p.put(p.prefix())
	}
	p.put(marker)
	p.midLine = true
	p.started = true
	p.push(container{kind: containerItem, prefix: strings.Repeat(" ", len(marker)), tight: l.tight})
}

// open pushes a quote or indented-code container. Right after a list marker
// the container's prefix belongs on the current line.
func (p *printer) open(c container) {
	if p.midLine {
		p.put(c.prefix)
	}
	p.push(c)
}

func (p *printer) push(c container) {
	p.containers = append(p.containers[:len(p.containers):len(p.containers)], c)
}

func (p *printer) close() {
	if len(p.containers) > 0 {
		p.containers = p.containers[:len(p.containers)-1]
	}
}

// gap is the number of line breaks between two blocks in the innermost
// container: one inside a tight list item, otherwise two.
func (p *printer) gap() int {
	if n := len(p.containers); n > 0 && p.containers[n-1].kind == containerItem && p.containers[n-1].tight {
		return 1
	}
	return 2
}

func (p *printer) prefix() string {
	var b strings.Builder
	for _, c := range p.containers {
		b.WriteString(c.prefix)
	}
	return b.String()
}

// block moves to a fresh line before a block starts.
func (p *printer) block() {
	if p.dirty && p.newlines == 0 {
		p.newlines = 1
	}
	p.flush()
}

func (p *printer) flush() {
	if !p.started {
		p.newlines = 0
		return
	}
	for ; p.newlines > 0; p.newlines-- {
		p.newline()
	}
}

// newline ends the current line. A line with no output still gets the
// container prefixes, so blank lines stay inside block quotes.
func (p *printer) newline() {
	if !p.midLine {
		p.put(strings.TrimRight(p.prefix(), " "))
	}
	p.put("\n")
	p.midLine = false
	p.dirty = false
}

// write emits s, prefixing each new line with the open containers. A final
// newline is held back and owed to the next write.
func (p *printer) write(s string) {
	if p.inHeading && s != "" {
		p.headingHash = strings.HasSuffix(s, "#")
	}
	p.flush()
	parts := strings.Split(s, "\n")
	for i, part := range parts {
		if i > 0 {
			if i == len(parts)-1 && part == "" {
				p.newlines++
				break
			}
			p.newline()
		}
		if part == "" {
			continue
		}
		if !p.midLine {
			p.put(p.prefix())
			p.midLine = true
		}
		p.put(part)
		p.dirty = true
	}
	p.started = true
}

func (p *printer) put(s string) {
	if p.err != nil || s == "" {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// codeSpan delimits code with a backtick run longer than any inside it.
func codeSpan(code string) string {
	longest, run := 0, 0
	for i := 0; i < len(code); i++ {
		if code[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	ticks := strings.Repeat("`", longest+1)
	pad := ""
	if code != "" {
		first, last := code[0], code[len(code)-1]
		if first == '`' || last == '`' || (first == ' ' && last == ' ' && strings.Trim(code, " ") != "") {
			pad = " "
		}
	}
	return ticks + pad + code + pad + ticks
}

func destination(dest string) string {
	if !strings.ContainsAny(dest, " ()<>") {
		return dest
	}
	r := strings.NewReplacer("<", `\<`, ">", `\>`)
	return "<" + r.Replace(dest) + ">"
}

func title(t string) string {
	switch {
	case t == "":
		return ""
	case !strings.Contains(t, `"`):
		return ` "` + t + `"`
	case !strings.Contains(t, "'"):
		return " '" + t + "'"
	default:
		r := strings.NewReplacer("(", `\(`, ")", `\)`)
		return " (" + r.Replace(t) + ")"
	}
}
