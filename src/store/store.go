// Package store persists the classification cache: the merged document of builds
// and failures that later runs start from.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrCorruptDocument is returned when a stored document cannot be decoded.
var ErrCorruptDocument = errors.New("cache document is corrupt")

// Store loads and saves the cache document.
type Store interface {
	// Load returns the stored document, or an empty one if nothing is stored yet.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the stored document.
	Save(ctx context.Context, doc *Document) error

	// Close releases resources held by the store.
	Close() error
}

// FileStore keeps the document as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the JSON file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file yields an empty document; undecodable
// content yields ErrCorruptDocument.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, s.path, err)
	}
	if doc.Builds == nil {
		doc.Builds = NewDocument().Builds
	}
	if doc.Failures == nil {
		doc.Failures = NewDocument().Failures
	}
	return doc, nil
}

// Save writes the document to a temporary file next to the target and renames it
// into place, so readers never observe a partial document.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}

// Close is a no-op for file stores.
func (s *FileStore) Close() error {
	return nil
}
