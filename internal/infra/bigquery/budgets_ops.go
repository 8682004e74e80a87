package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/budget-sync/internal/bigquery"
)

// tableRef renders the fully qualified, backquoted name of a table.
func tableRef(client *bigquery.Client, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", client.Project(), datasetID, table)
}

// saver attaches an insert id so BigQuery drops duplicates of a retried
// streaming insert.
func saver(row any, insertID string) *bigquery.StructSaver {
	return &bigquery.StructSaver{Struct: row, InsertID: insertID}
}

// InsertBudgetWithClient inserts a single BudgetRow into budgets.
func InsertBudgetWithClient(ctx context.Context, client *bigquery.Client, datasetID string, row *BudgetRow) error {
	inserter := client.Dataset(datasetID).Table(bq.BudgetsTable).Inserter()
	if err := inserter.Put(ctx, saver(row, row.BudgetID)); err != nil {
		return fmt.Errorf("InsertBudgetWithClient: inserting row: %w", err)
	}
	return nil
}

// InsertBudgetDetailsWithClient inserts a batch of rows into budget_details.
func InsertBudgetDetailsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*BudgetDetailRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, saver(row, row.LineItemID))
	}

	inserter := client.Dataset(datasetID).Table(bq.BudgetDetailsTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertBudgetDetailsWithClient: inserting rows: %w", err)
	}
	return nil
}

// InsertValidationsWithClient inserts a batch of rows into budget_validations.
func InsertValidationsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*BudgetValidationRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, saver(row, row.ValidationID))
	}

	inserter := client.Dataset(datasetID).Table(bq.BudgetValidationsTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertValidationsWithClient: inserting rows: %w", err)
	}
	return nil
}

// FindBudgetWithClient retrieves a budget by id. Returns nil if no budget
// with the given id exists.
func FindBudgetWithClient(ctx context.Context, client *bigquery.Client, datasetID, budgetID string) (*BudgetRow, error) {
	query := fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE budget_id = @budget_id
		ORDER BY processed_at DESC
		LIMIT 1
	`, tableRef(client, datasetID, bq.BudgetsTable))

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "budget_id", Value: budgetID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindBudgetWithClient: reading query: %w", err)
	}

	var row BudgetRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindBudgetWithClient: reading row: %w", err)
	}

	return &row, nil
}
