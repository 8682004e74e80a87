package gcs

import (
	"context"
)

// ArtifactStore persists audit artifacts of processed budgets.
// This interface lets the pipeline write to GCS or a local directory.
type ArtifactStore interface {
	// Put stores data under key and returns the URI it can be read back from.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get reads back an artifact by the URI Put returned.
	Get(ctx context.Context, uri string) ([]byte, error)
}
