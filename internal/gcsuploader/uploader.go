package gcsuploader

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// GCSArtifactStore writes artifacts to a GCS bucket.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
type GCSArtifactStore struct {
	client *storage.Client
	bucket string
}

// NewGCSArtifactStore creates a store with a shared storage client.
func NewGCSArtifactStore(ctx context.Context, bucket string) (*GCSArtifactStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSArtifactStore: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArtifactStore: create storage client: %w", err)
	}
	return &GCSArtifactStore{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (s *GCSArtifactStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Put uploads data to gs://{bucket}/{key}.
func (s *GCSArtifactStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("write GCS object %s: %w", key, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload of %s: %w", key, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}
