// Package catalog - catalog file loading
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"pvquote/internal/errors"
)

// File is the on-disk catalog document
type File struct {
	// Products are the catalog records
	Products []Product `json:"products"`
}

// LoadFile reads a JSON catalog document and returns a populated
// store. Records are not checked here; run Validate with the default
// rules before quoting against an untrusted file.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config(fmt.Sprintf("reading catalog file %s failed", path), err)
	}

	var doc File
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Config(fmt.Sprintf("parsing catalog file %s failed", path), err)
	}

	store := NewMemoryStore()
	for _, p := range doc.Products {
		store.Register(p)
	}
	return store, nil
}
