package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/budget-sync/internal/bigquery"
)

// Re-export the warehouse types from the shared package.
type (
	BudgetRepository    = bq.BudgetRepository
	BudgetRow           = bq.BudgetRow
	BudgetDetailRow     = bq.BudgetDetailRow
	BudgetValidationRow = bq.BudgetValidationRow
	ProjectRow          = bq.ProjectRow
)

// DefaultMaxRetries is the number of attempts per warehouse write.
const DefaultMaxRetries = 3

// Options configures a BigQueryBudgetRepository.
type Options struct {
	ProjectID  string
	DatasetID  string
	MaxRetries int
}

// BigQueryBudgetRepository is the BudgetRepository backed by BigQuery. It
// holds one client for all writes of a process.
type BigQueryBudgetRepository struct {
	client     *bigquery.Client
	datasetID  string
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// NewBigQueryBudgetRepository creates a repository with a shared BigQuery client.
func NewBigQueryBudgetRepository(ctx context.Context, opts Options) (*BigQueryBudgetRepository, error) {
	if opts.ProjectID == "" || opts.DatasetID == "" {
		return nil, fmt.Errorf("NewBigQueryBudgetRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryBudgetRepository: creating client: %w", err)
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &BigQueryBudgetRepository{
		client:     client,
		datasetID:  opts.DatasetID,
		maxRetries: maxRetries,
		backoff:    exponentialBackoff,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryBudgetRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertBudget streams the budget row, retrying transient failures.
func (r *BigQueryBudgetRepository) InsertBudget(ctx context.Context, row *BudgetRow) error {
	return withRetry(ctx, "InsertBudget", r.maxRetries, r.backoff, func() error {
		return InsertBudgetWithClient(ctx, r.client, r.datasetID, row)
	})
}

// InsertBudgetDetails streams line-item and subtotal rows.
func (r *BigQueryBudgetRepository) InsertBudgetDetails(ctx context.Context, rows []*BudgetDetailRow) error {
	return withRetry(ctx, "InsertBudgetDetails", r.maxRetries, r.backoff, func() error {
		return InsertBudgetDetailsWithClient(ctx, r.client, r.datasetID, rows)
	})
}

// InsertValidations streams validation message rows.
func (r *BigQueryBudgetRepository) InsertValidations(ctx context.Context, rows []*BudgetValidationRow) error {
	return withRetry(ctx, "InsertValidations", r.maxRetries, r.backoff, func() error {
		return InsertValidationsWithClient(ctx, r.client, r.datasetID, rows)
	})
}

// UpsertProject merges the project row.
func (r *BigQueryBudgetRepository) UpsertProject(ctx context.Context, row *ProjectRow) error {
	return withRetry(ctx, "UpsertProject", r.maxRetries, r.backoff, func() error {
		return UpsertProjectWithClient(ctx, r.client, r.datasetID, row)
	})
}

// FindBudget delegates to FindBudgetWithClient with the shared client.
func (r *BigQueryBudgetRepository) FindBudget(ctx context.Context, budgetID string) (*BudgetRow, error) {
	return FindBudgetWithClient(ctx, r.client, r.datasetID, budgetID)
}

var _ BudgetRepository = (*BigQueryBudgetRepository)(nil)
