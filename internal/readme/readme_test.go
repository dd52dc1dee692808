package readme

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jcdickinson/cargo-extract-readme/internal/docs"
)

func strptr(s string) *string { return &s }

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRender_DocExample(t *testing.T) {
	t.Parallel()
	var out, logs bytes.Buffer
	src := "Does a thing.\n\n```\n# use foo;\nfn main() { do_thing(); }\n```\n"
	if err := Render(&out, src, Options{Logger: testLogger(&logs)}); err != nil {
		t.Fatal(err)
	}
	want := "Does a thing.\n\n```rust\nfn main() { do_thing(); }\n```\n"
	if out.String() != want {
		t.Errorf("got %q\nwant %q", out.String(), want)
	}
	if !strings.Contains(logs.String(), `"msg":"event"`) {
		t.Error("expected per-event debug logs")
	}
}

func TestRender_Idempotent(t *testing.T) {
	t.Parallel()
	src := "# Demo\n\nIntro with *emphasis*.\n\n- one\n- two\n\n```text\nplain\n```\n"
	var first, second bytes.Buffer
	if err := Render(&first, src, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := Render(&second, first.String(), Options{}); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Errorf("second pass changed output:\n%q\n%q", first.String(), second.String())
	}
}

func TestRender_CustomHint(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	if err := Render(&out, "```\nx\n```\n", Options{DefaultHint: "text"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "```text\n") {
		t.Errorf("got %q", out.String())
	}
}

func TestRender_BrokenLinkLoggedPerLink(t *testing.T) {
	t.Parallel()
	var out, logs bytes.Buffer
	src := "See [Foo] and [foo] again.\n"
	if err := Render(&out, src, Options{Logger: testLogger(&logs)}); err != nil {
		t.Fatalf("broken links must not fail: %v", err)
	}
	if n := strings.Count(logs.String(), `"msg":"broken_link"`); n != 2 {
		t.Errorf("broken_link logged %d times, want 2\n%s", n, logs.String())
	}
	for _, want := range []string{`"level":"WARN"`, `"span":"4..9"`, `"span":"14..19"`, `"link_type":"Shortcut"`, `"reference":"foo"`} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %s", want)
		}
	}
	if out.String() != "See [Foo] and [foo] again.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestRender_ResolvedLinks(t *testing.T) {
	t.Parallel()
	var out, logs bytes.Buffer
	opts := Options{
		Logger: testLogger(&logs),
		Links: map[string]string{
			"`Widget`":     "https://docs.rs/demo/1.0.0/demo/struct.Widget.html",
			"crate::Gizmo": "https://docs.rs/demo/1.0.0/demo/struct.Gizmo.html",
		},
	}
	src := "Use [`Widget`] or [a gizmo](crate::Gizmo).\n"
	if err := Render(&out, src, opts); err != nil {
		t.Fatal(err)
	}
	want := "Use [`Widget`](https://docs.rs/demo/1.0.0/demo/struct.Widget.html) or [a gizmo](https://docs.rs/demo/1.0.0/demo/struct.Gizmo.html).\n"
	if out.String() != want {
		t.Errorf("got %q\nwant %q", out.String(), want)
	}
	if strings.Contains(logs.String(), "broken_link") {
		t.Error("resolved link reported as broken")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestRender_WriteError(t *testing.T) {
	t.Parallel()
	err := Render(failWriter{}, "hello", Options{})
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("err = %v, want ErrWrite", err)
	}
	if !strings.Contains(err.Error(), "pipe closed") {
		t.Errorf("cause lost: %v", err)
	}
}

func demoCrate(rootDocs *string) *docs.Crate {
	return &docs.Crate{
		Root:         "0",
		CrateVersion: strptr("1.0.0"),
		Index: map[docs.ID]docs.Item{
			"0": {ID: "0", Name: strptr("demo"), Docs: rootDocs, Links: map[string]docs.ID{"`Widget`": "1"}},
		},
		Paths: map[docs.ID]docs.Summary{
			"1": {Path: []string{"demo", "Widget"}, Kind: "struct"},
		},
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	c := demoCrate(strptr("Has a [`Widget`].\n"))
	if err := Generate(&out, c, Options{}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Has a [`Widget`].\n" {
		t.Errorf("links must stay untouched by default, got %q", out.String())
	}

	out.Reset()
	if err := Generate(&out, c, Options{ResolveLinks: true}); err != nil {
		t.Fatal(err)
	}
	if want := "Has a [`Widget`](https://docs.rs/demo/1.0.0/demo/struct.Widget.html).\n"; out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestGenerate_NoDocs(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	err := Generate(&out, demoCrate(nil), Options{})
	if !errors.Is(err, docs.ErrNoRootDocs) {
		t.Fatalf("err = %v, want ErrNoRootDocs", err)
	}
	if out.Len() != 0 {
		t.Errorf("output written on failure: %q", out.String())
	}
}
