package markdown

import (
	"strings"
	"testing"
)

func TestRewriteLinks_InlineLinks(t *testing.T) {
	t.Parallel()
	src := "See [Foo](crate::Foo) for details."
	got := RewriteLinks(src, map[string]string{"crate::Foo": "https://docs.rs/demo/latest/demo/struct.Foo.html"})
	want := "See [Foo](https://docs.rs/demo/latest/demo/struct.Foo.html) for details."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewriteLinks_ReferenceDefinitions(t *testing.T) {
	t.Parallel()
	src := "See [Foo][ref] for details.\n\n[ref]: crate::Foo"
	got := RewriteLinks(src, map[string]string{"crate::Foo": "https://example.com/foo"})
	if !strings.Contains(got, "[ref]: https://example.com/foo") {
		t.Errorf("reference definition not rewritten: %q", got)
	}
}

func TestRewriteLinks_EmptyMap(t *testing.T) {
	t.Parallel()
	src := "Hello [world](url)."
	if got := RewriteLinks(src, nil); got != src {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := RewriteLinks(src, map[string]string{}); got != src {
		t.Errorf("expected unchanged for empty map, got %q", got)
	}
}

func TestRewriteLinks_NoMatchingLinks(t *testing.T) {
	t.Parallel()
	src := "Check [this](keep-me) out."
	if got := RewriteLinks(src, map[string]string{"other": "https://x"}); got != src {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestRewriteLinks_MultipleLinks(t *testing.T) {
	t.Parallel()
	src := "[A](a-dest) and [B](b-dest) together."
	got := RewriteLinks(src, map[string]string{
		"a-dest": "https://a",
		"b-dest": "https://b",
	})
	if !strings.Contains(got, "(https://a)") {
		t.Error("link A not rewritten")
	}
	if !strings.Contains(got, "(https://b)") {
		t.Error("link B not rewritten")
	}
}

func TestRewriteLinks_LeavesCodeAlone(t *testing.T) {
	t.Parallel()
	src := "```rust\nlet s = \"](crate::Foo)\";\n```\n"
	if got := RewriteLinks(src, map[string]string{"crate::Foo": "https://x"}); got != src {
		t.Errorf("code block rewritten: %q", got)
	}
}

func TestRewriteLinks_CodeNextToLinkedProse(t *testing.T) {
	t.Parallel()
	links := map[string]string{"crate::Foo": "https://x"}
	tests := []struct {
		name, src, want string
	}{
		{
			"fenced",
			"See [Foo](crate::Foo).\n\n```rust\nlet s = \"[a](crate::Foo)\";\n```\n",
			"See [Foo](https://x).\n\n```rust\nlet s = \"[a](crate::Foo)\";\n```\n",
		},
		{
			"indented",
			"See [Foo](crate::Foo).\n\n    [a](crate::Foo)\n",
			"See [Foo](https://x).\n\n    [a](crate::Foo)\n",
		},
		{
			"code span",
			"Write `[a](crate::Foo)` for [Foo](crate::Foo).\n",
			"Write `[a](crate::Foo)` for [Foo](https://x).\n",
		},
		{
			"definition in fence",
			"[Foo][f]\n\n```\n[f]: crate::Foo\n```\n\n[f]: crate::Foo\n",
			"[Foo][f]\n\n```\n[f]: crate::Foo\n```\n\n[f]: https://x\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RewriteLinks(tt.src, links); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestResolveFrom(t *testing.T) {
	t.Parallel()
	resolve := ResolveFrom(map[string]string{"`Foo`": "https://example.com/Foo"})

	repl, ok := resolve(BrokenLink{Reference: "`foo`"})
	if !ok || repl.Dest != "https://example.com/Foo" {
		t.Errorf("got %+v, %v", repl, ok)
	}
	if _, ok := resolve(BrokenLink{Reference: "bar"}); ok {
		t.Error("unknown label resolved")
	}
}
