// Package file implements a Store that reads raw messages from a local
// directory, mirroring the object key layout of the bucket.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads objects from files below a root directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Fetch reads <root>/<key>. Keys use "/" separators and may not escape root.
func (s *Store) Fetch(_ context.Context, key string) ([]byte, error) {
	rel := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("invalid key %q: outside store root", key)
	}

	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "file"
}
