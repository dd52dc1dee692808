package docs

import "errors"

var (
	// ErrNoRootDocs is returned when the crate root has no doc comment.
	ErrNoRootDocs = errors.New("root does not have any documentation")
	// ErrRootNotFound is returned when the artifact's root id is missing
	// from its own index.
	ErrRootNotFound = errors.New("root item not found in rustdoc index")
)

// RootItem returns the index entry of the crate root.
func (c *Crate) RootItem() (*Item, error) {
	item, ok := c.Index[c.Root]
	if !ok {
		return nil, ErrRootNotFound
	}
	return &item, nil
}

// RootDocs returns the crate-level documentation comment.
func (c *Crate) RootDocs() (string, error) {
	item, err := c.RootItem()
	if err != nil {
		return "", err
	}
	if item.Docs == nil || *item.Docs == "" {
		return "", ErrNoRootDocs
	}
	return *item.Docs, nil
}
