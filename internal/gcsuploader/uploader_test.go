package gcsuploader

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-sync/internal/budget"
)

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "budgets/ACME0324SPOT/b1.json", ArtifactKey("budgets", "ACME0324SPOT", "b1"))
	assert.Equal(t, "ACME0324SPOT/b1.json", ArtifactKey("", "ACME0324SPOT", "b1"))
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{uri: "gs://bkt/budgets/p/b1.json", bucket: "bkt", object: "budgets/p/b1.json"},
		{uri: "gs://bkt", wantErr: true},
		{uri: "gs://bkt/", wantErr: true},
		{uri: "s3://bkt/x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestLocalArtifactStore_WriteDocument(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalArtifactStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	pb := &budget.ProcessedBudget{BudgetID: "b1", ProjectID: "ACME", ValidationStatus: budget.StatusValid}
	uri, err := WriteDocument(ctx, store, "budgets", pb)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.FileExists(t, filepath.Join(root, "budgets", "ACME", "b1.json"))

	data, err := store.Get(ctx, uri)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"budget_id\": \"b1\"")

	var back budget.ProcessedBudget
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "ACME", back.ProjectID)

	byKey, err := store.Get(ctx, "budgets/ACME/b1.json")
	require.NoError(t, err)
	assert.Equal(t, data, byKey)
}

func TestLocalArtifactStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalArtifactStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "../outside.json", []byte("{}"))
	assert.Error(t, err)
}
