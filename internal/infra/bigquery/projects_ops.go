package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/budget-sync/internal/bigquery"
)

// upsertProjectSQL merges one project row keyed by project_id. Numerics travel
// as strings so a missing total binds as a typed NULL.
func upsertProjectSQL(table string) string {
	return fmt.Sprintf(`
		MERGE %s AS t
		USING (
			SELECT
				@project_id AS project_id,
				@job_name AS job_name,
				@production_company AS production_company,
				@latest_budget_id AS latest_budget_id,
				@latest_version AS latest_version,
				SAFE_CAST(@latest_estimate_total AS NUMERIC) AS latest_estimate_total,
				SAFE_CAST(@latest_actual_total AS NUMERIC) AS latest_actual_total,
				SAFE_CAST(@latest_client_actual_total AS NUMERIC) AS latest_client_actual_total,
				SAFE_CAST(@latest_variance AS NUMERIC) AS latest_variance,
				SAFE_CAST(@latest_client_variance AS NUMERIC) AS latest_client_variance,
				@status AS status,
				@updated_at AS updated_at
		) AS s
		ON t.project_id = s.project_id
		WHEN MATCHED THEN UPDATE SET
			job_name = s.job_name,
			production_company = s.production_company,
			latest_budget_id = s.latest_budget_id,
			latest_version = s.latest_version,
			latest_estimate_total = s.latest_estimate_total,
			latest_actual_total = s.latest_actual_total,
			latest_client_actual_total = s.latest_client_actual_total,
			latest_variance = s.latest_variance,
			latest_client_variance = s.latest_client_variance,
			status = s.status,
			updated_at = s.updated_at
		WHEN NOT MATCHED THEN INSERT ROW
	`, table)
}

// numericParam renders a NUMERIC value for SAFE_CAST, NULL when absent.
func numericParam(r *big.Rat) bigquery.NullString {
	if r == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: r.FloatString(9), Valid: true}
}

func projectParams(row *ProjectRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "project_id", Value: row.ProjectID},
		{Name: "job_name", Value: row.JobName},
		{Name: "production_company", Value: row.ProductionCompany},
		{Name: "latest_budget_id", Value: row.LatestBudgetID},
		{Name: "latest_version", Value: row.LatestVersion},
		{Name: "latest_estimate_total", Value: numericParam(row.LatestEstimateTotal)},
		{Name: "latest_actual_total", Value: numericParam(row.LatestActualTotal)},
		{Name: "latest_client_actual_total", Value: numericParam(row.LatestClientActualTotal)},
		{Name: "latest_variance", Value: numericParam(row.LatestVariance)},
		{Name: "latest_client_variance", Value: numericParam(row.LatestClientVariance)},
		{Name: "status", Value: row.Status},
		{Name: "updated_at", Value: row.UpdatedAt},
	}
}

// UpsertProjectWithClient creates the project row or points it at the latest
// budget using the provided BigQuery client.
func UpsertProjectWithClient(ctx context.Context, client *bigquery.Client, datasetID string, row *ProjectRow) error {
	q := client.Query(upsertProjectSQL(tableRef(client, datasetID, bq.ProjectsTable)))
	q.Parameters = projectParams(row)

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertProjectWithClient: running merge query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertProjectWithClient: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpsertProjectWithClient: job error: %w", err)
	}

	return nil
}
