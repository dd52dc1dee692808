package docs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies an item in a rustdoc JSON artifact. Current formats write ids
// as numbers; older ones wrote strings such as "0:3:1622". Both decode to
// the same textual form, which is also how they appear as object keys.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("rustdoc id %s: %w", data, err)
	}
	*id = ID(strconv.FormatUint(n, 10))
	return nil
}

// Crate is the top-level structure of rustdoc JSON output.
type Crate struct {
	Root           ID                       `json:"root"`
	CrateVersion   *string                  `json:"crate_version"`
	Index          map[ID]Item              `json:"index"`
	Paths          map[ID]Summary           `json:"paths"`
	ExternalCrates map[string]ExternalCrate `json:"external_crates"`
	FormatVersion  int                      `json:"format_version"`
}

// ExternalCrate identifies a dependency crate by name.
type ExternalCrate struct {
	Name        string `json:"name"`
	HTMLRootURL string `json:"html_root_url"`
}

// Item is a single item in the rustdoc index.
type Item struct {
	ID      ID              `json:"id"`
	CrateID uint32          `json:"crate_id"`
	Name    *string         `json:"name"`
	Docs    *string         `json:"docs"`
	Links   map[string]ID   `json:"links"` // markdown text → item id
	Inner   json.RawMessage `json:"inner"`
}

// Summary provides the path and kind for an item.
type Summary struct {
	CrateID uint32   `json:"crate_id"`
	Path    []string `json:"path"`
	Kind    string   `json:"kind"`
}

// Name returns the name of the root item, or "" when it has none.
func (c *Crate) Name() string {
	if item, ok := c.Index[c.Root]; ok && item.Name != nil {
		return *item.Name
	}
	return ""
}

// Version returns the documented crate version, or "latest" when the
// artifact does not record one.
func (c *Crate) Version() string {
	if c.CrateVersion != nil && *c.CrateVersion != "" {
		return *c.CrateVersion
	}
	return "latest"
}
