// Package storage abstracts where rendered documents land. The core only
// needs a key-addressed Put; swapping the filesystem for an object store is a
// provider change, not a billing change.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type ObjectStore interface {
	// Put writes the object and returns a stable URL for it.
	Put(ctx context.Context, key string, contentType string, body io.Reader) (string, error)
}

// LocalStore keeps documents on the local filesystem under a base directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("document directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, _ string, body io.Reader) (string, error) {
	key = filepath.Clean(strings.TrimLeft(key, "/"))
	if key == "." || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	path := filepath.Join(s.dir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", err
	}
	return "file://" + path, nil
}
