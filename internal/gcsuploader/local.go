package gcsuploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalArtifactStore writes artifacts below a directory, for runs without a bucket.
type LocalArtifactStore struct {
	root string
}

// NewLocalArtifactStore creates the root directory if needed.
func NewLocalArtifactStore(root string) (*LocalArtifactStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocalArtifactStore: %w", err)
	}
	return &LocalArtifactStore{root: root}, nil
}

func (s *LocalArtifactStore) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the artifact directory", key)
	}
	return p, nil
}

// Put writes data to {root}/{key} and returns a file:// URI.
func (s *LocalArtifactStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", fmt.Errorf("Put: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("Put: creating directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("Put: writing %s: %w", p, err)
	}
	return "file://" + filepath.ToSlash(p), nil
}

// Get reads back an artifact by its file:// URI or key.
func (s *LocalArtifactStore) Get(ctx context.Context, uri string) ([]byte, error) {
	p := strings.TrimPrefix(uri, "file://")
	if !filepath.IsAbs(p) {
		var err error
		if p, err = s.path(p); err != nil {
			return nil, fmt.Errorf("Get: %w", err)
		}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return data, nil
}
