package docs

import (
	"regexp"
	"strconv"
	"strings"
)

// kindPrefixes maps rustdoc item kinds to the file prefix rustdoc gives their
// HTML page, e.g. struct Foo lives at struct.Foo.html.
var kindPrefixes = map[string]string{
	"struct":         "struct",
	"enum":           "enum",
	"union":          "union",
	"trait":          "trait",
	"trait_alias":    "traitalias",
	"function":       "fn",
	"type_alias":     "type",
	"constant":       "constant",
	"static":         "static",
	"macro":          "macro",
	"proc_attribute": "attr",
	"proc_derive":    "derive",
	"primitive":      "primitive",
	"keyword":        "keyword",
}

// Resolver turns intra-doc link targets into documentation URLs.
type Resolver struct {
	Crate   *Crate
	BaseURL string // docs.rs or a mirror; DefaultBaseURL when empty
}

// ResolveDocLinks resolves the intra-doc links of item. The item's Links
// field maps markdown target text (e.g. "Value::as_str") to item ids; each
// id is looked up in Paths to get the full Rust path and crate origin.
func (r *Resolver) ResolveDocLinks(item *Item) map[string]string {
	if len(item.Links) == 0 {
		return nil
	}

	resolved := make(map[string]string, len(item.Links))
	for markdownTarget, itemID := range item.Links {
		u := r.ResolveItemURL(itemID)
		if u == "" {
			continue
		}
		resolved[markdownTarget] = u
	}

	if len(resolved) == 0 {
		return nil
	}
	return resolved
}

// ResolveItemURL builds the documentation URL of an item. Returns "" if the
// item can't be resolved.
func (r *Resolver) ResolveItemURL(itemID ID) string {
	summary, ok := r.Crate.Paths[itemID]
	if !ok || len(summary.Path) == 0 {
		return ""
	}

	root := r.crateRoot(summary.CrateID)
	if root == "" {
		return ""
	}
	page := itemPage(summary)
	if page == "" {
		return ""
	}
	return root + page
}

// crateRoot returns the URL, with a trailing slash, under which the pages of
// a crate live. Dependencies use their html_root_url when the artifact
// records one.
func (r *Resolver) crateRoot(crateID uint32) string {
	base := strings.TrimSuffix(r.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if crateID == 0 {
		name := r.Crate.Name()
		if name == "" {
			return ""
		}
		return base + "/" + name + "/" + r.Crate.Version() + "/"
	}

	ext, ok := r.Crate.ExternalCrates[strconv.FormatUint(uint64(crateID), 10)]
	if !ok {
		return ""
	}
	if ext.HTMLRootURL != "" {
		return strings.TrimSuffix(ext.HTMLRootURL, "/") + "/"
	}
	name := r.Crate.ExternalCrateName(crateID)
	if name == "" {
		return ""
	}
	return base + "/" + name + "/latest/"
}

// itemPage returns an item's page relative to its crate root.
func itemPage(s Summary) string {
	path := s.Path
	last := len(path) - 1
	switch s.Kind {
	case "module":
		return strings.Join(path, "/") + "/index.html"
	case "variant", "struct_field":
		if last < 1 {
			return ""
		}
		anchor := "#variant."
		parent := "enum."
		if s.Kind == "struct_field" {
			anchor = "#structfield."
			parent = "struct."
		}
		return dirOf(path[:last]) + parent + path[last-1] + ".html" + anchor + path[last]
	}
	prefix, ok := kindPrefixes[s.Kind]
	if !ok {
		return ""
	}
	return dirOf(path) + prefix + "." + path[last] + ".html"
}

// dirOf returns the module directory of the item at path, with a trailing
// slash.
func dirOf(path []string) string {
	if len(path) <= 1 {
		return ""
	}
	return strings.Join(path[:len(path)-1], "/") + "/"
}

// ExternalCrateName looks up the Cargo package name for a dependency by crate_id.
// Prefers the name extracted from html_root_url (e.g. "https://docs.rs/tracing-core/0.1.36/...")
// since the Name field uses the Rust lib name (underscores) which may differ from the
// Cargo name (hyphens). Falls back to the lib name if no docs.rs URL is present.
func (c *Crate) ExternalCrateName(crateID uint32) string {
	ext, ok := c.ExternalCrates[strconv.FormatUint(uint64(crateID), 10)]
	if !ok {
		return ""
	}
	if name := extractDocsRsCrateName(ext.HTMLRootURL); name != "" {
		return name
	}
	return ext.Name
}

// docsRsCrateNameRe extracts the crate name from a docs.rs html_root_url.
// Example: "https://docs.rs/tracing-core/0.1.36/x86_64-unknown-linux-gnu/" → "tracing-core"
var docsRsCrateNameRe = regexp.MustCompile(`^https?://docs\.rs/([^/]+)/`)

func extractDocsRsCrateName(rootURL string) string {
	m := docsRsCrateNameRe.FindStringSubmatch(rootURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
