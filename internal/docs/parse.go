package docs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Parse decodes a rustdoc JSON artifact. Zstd-compressed input, as served by
// docs.rs, is recognised by its magic number and decompressed first.
func Parse(data []byte) (*Crate, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer r.Close()
		return decode(r)
	}
	return decode(bytes.NewReader(data))
}

func decode(r io.Reader) (*Crate, error) {
	var crate Crate
	if err := json.NewDecoder(r).Decode(&crate); err != nil {
		return nil, fmt.Errorf("couldn't deserialize rustdoc json: %w", err)
	}
	return &crate, nil
}

// Load reads and parses the artifact at path.
func Load(path string) (*Crate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open file containing rustdoc-json %s: %w", path, err)
	}
	return Parse(data)
}
