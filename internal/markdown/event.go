package markdown

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant an Event holds.
type Kind uint8

const (
	KindStart Kind = iota + 1
	KindEnd
	KindText
	KindCode
	KindHTML
	KindInlineHTML
	KindSoftBreak
	KindHardBreak
	KindRule
)

var kindNames = map[Kind]string{
	KindStart:      "Start",
	KindEnd:        "End",
	KindText:       "Text",
	KindCode:       "Code",
	KindHTML:       "Html",
	KindInlineHTML: "InlineHtml",
	KindSoftBreak:  "SoftBreak",
	KindHardBreak:  "HardBreak",
	KindRule:       "Rule",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// TagKind identifies the construct opened or closed by a Start/End event.
type TagKind uint8

const (
	TagParagraph TagKind = iota + 1
	TagHeading
	TagBlockQuote
	TagCodeBlock
	TagList
	TagItem
	TagEmphasis
	TagStrong
	TagLink
	TagImage
)

var tagNames = map[TagKind]string{
	TagParagraph:  "Paragraph",
	TagHeading:    "Heading",
	TagBlockQuote: "BlockQuote",
	TagCodeBlock:  "CodeBlock",
	TagList:       "List",
	TagItem:       "Item",
	TagEmphasis:   "Emphasis",
	TagStrong:     "Strong",
	TagLink:       "Link",
	TagImage:      "Image",
}

func (k TagKind) String() string {
	if name, ok := tagNames[k]; ok {
		return name
	}
	return "TagKind(" + strconv.Itoa(int(k)) + ")"
}

// CodeBlockKind distinguishes indented code blocks from fenced ones.
type CodeBlockKind uint8

const (
	CodeIndented CodeBlockKind = iota + 1
	CodeFenced
)

// Tag describes a container construct. Only the fields relevant to Kind are set.
type Tag struct {
	Kind TagKind

	// Heading
	Level int

	// CodeBlock. Info is the fence hint ("" when none was given); Fence is the
	// opening fence the block needs so its content cannot close it early.
	CodeBlock CodeBlockKind
	Info      string
	Fence     string

	// List. Marker is the bullet character, or the delimiter ('.' or ')') of
	// an ordered list.
	Ordered bool
	Start   int
	Marker  byte
	Tight   bool

	// Link and Image
	Dest     string
	Title    string
	Autolink bool
}

// Event is one structural unit of a markdown document. Start and End events
// carry a Tag; the remaining kinds carry Text.
type Event struct {
	Kind Kind
	Tag  Tag
	Text string
}

func Start(tag Tag) Event { return Event{Kind: KindStart, Tag: tag} }

func End(tag Tag) Event { return Event{Kind: KindEnd, Tag: tag} }

func Text(s string) Event { return Event{Kind: KindText, Text: s} }

func Code(s string) Event { return Event{Kind: KindCode, Text: s} }

func HTML(s string) Event { return Event{Kind: KindHTML, Text: s} }

func InlineHTML(s string) Event { return Event{Kind: KindInlineHTML, Text: s} }

func SoftBreak() Event { return Event{Kind: KindSoftBreak} }

func HardBreak() Event { return Event{Kind: KindHardBreak} }

func Rule() Event { return Event{Kind: KindRule} }

// Fenced returns the tag of a fenced code block with the given hint.
func Fenced(info string) Tag {
	return Tag{Kind: TagCodeBlock, CodeBlock: CodeFenced, Info: info, Fence: "```"}
}

// IsCodeBlock reports whether e opens or closes a code block.
func (e Event) IsCodeBlock() bool {
	return (e.Kind == KindStart || e.Kind == KindEnd) && e.Tag.Kind == TagCodeBlock
}

func (e Event) String() string {
	switch e.Kind {
	case KindStart, KindEnd:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Tag)
	case KindSoftBreak, KindHardBreak, KindRule:
		return e.Kind.String()
	default:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Text)
	}
}

func (t Tag) String() string {
	switch t.Kind {
	case TagHeading:
		return fmt.Sprintf("Heading(%d)", t.Level)
	case TagCodeBlock:
		if t.CodeBlock == CodeFenced {
			return fmt.Sprintf("CodeBlock(Fenced(%q))", t.Info)
		}
		return "CodeBlock(Indented)"
	case TagList:
		if t.Ordered {
			return fmt.Sprintf("List(%d)", t.Start)
		}
		return "List(None)"
	case TagLink, TagImage:
		return fmt.Sprintf("%s(%q, %q)", t.Kind, t.Dest, t.Title)
	default:
		return t.Kind.String()
	}
}
