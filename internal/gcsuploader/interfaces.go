package gcsuploader

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/gcs"
)

// Re-export interface from shared package
type ArtifactStore = gcs.ArtifactStore

// ArtifactKey is the object key of a budget document:
// {prefix}/{project_id}/{budget_id}.json
func ArtifactKey(prefix, projectID, budgetID string) string {
	return path.Join(prefix, projectID, budgetID+".json")
}

// WriteDocument stores pb as indented JSON and returns its URI.
func WriteDocument(ctx context.Context, store ArtifactStore, prefix string, pb *budget.ProcessedBudget) (string, error) {
	data, err := json.MarshalIndent(pb, "", "  ")
	if err != nil {
		return "", fmt.Errorf("WriteDocument: encoding %s: %w", pb.BudgetID, err)
	}
	uri, err := store.Put(ctx, ArtifactKey(prefix, pb.ProjectID, pb.BudgetID), data)
	if err != nil {
		return "", fmt.Errorf("WriteDocument: %w", err)
	}
	return uri, nil
}
