package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	bq "github.com/dvloznov/budget-sync/internal/bigquery"
	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/gcs"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// BudgetSink receives the warehouse rows of a processed budget.
// bigquery.BudgetRepository satisfies it; FindBudget is not needed here.
type BudgetSink interface {
	InsertBudget(ctx context.Context, row *bq.BudgetRow) error
	InsertBudgetDetails(ctx context.Context, rows []*bq.BudgetDetailRow) error
	InsertValidations(ctx context.Context, rows []*bq.BudgetValidationRow) error
	UpsertProject(ctx context.Context, row *bq.ProjectRow) error
}

// VersionResolver decides the version of a run. *versioning.Engine satisfies it.
type VersionResolver interface {
	Resolve(ctx context.Context, id budget.Identity, hash string, now time.Time) (versioning.Resolution, error)
}

// ArtifactStore persists the audit document.
type ArtifactStore = gcs.ArtifactStore

// IDGenerator produces budget ids.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// SystemClock is the default Clock, in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}
