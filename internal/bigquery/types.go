package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
)

// Table names of the budget warehouse dataset.
const (
	BudgetsTable           = "budgets"
	BudgetDetailsTable     = "budget_details"
	BudgetValidationsTable = "budget_validations"
	ProjectsTable          = "projects"
)

// BudgetRepository writes processed budgets to the warehouse.
type BudgetRepository interface {
	// InsertBudget inserts the budget-level row.
	InsertBudget(ctx context.Context, row *BudgetRow) error

	// InsertBudgetDetails inserts line-item and class-subtotal rows.
	InsertBudgetDetails(ctx context.Context, rows []*BudgetDetailRow) error

	// InsertValidations inserts one row per validation message.
	InsertValidations(ctx context.Context, rows []*BudgetValidationRow) error

	// UpsertProject creates or replaces the project row with the latest budget.
	UpsertProject(ctx context.Context, row *ProjectRow) error

	// FindBudget retrieves a budget row by id, nil when absent.
	FindBudget(ctx context.Context, budgetID string) (*BudgetRow, error)

	Close() error
}

// BudgetRow is one processed upload: cover sheet, totals and version.
type BudgetRow struct {
	BudgetID  string `bigquery:"budget_id"`  // REQUIRED
	ProjectID string `bigquery:"project_id"` // REQUIRED

	SpreadsheetID string             `bigquery:"spreadsheet_id"` // REQUIRED
	SheetName     string             `bigquery:"sheet_name"`     // REQUIRED
	SheetGID      bigquery.NullInt64 `bigquery:"sheet_gid"`      // NULLABLE

	ProjectTitle      string              `bigquery:"project_title"`      // REQUIRED
	ProductionCompany bigquery.NullString `bigquery:"production_company"` // NULLABLE
	ContactPhone      bigquery.NullString `bigquery:"contact_phone"`      // NULLABLE
	ProjectDate       bigquery.NullDate   `bigquery:"project_date"`       // NULLABLE

	Director bigquery.NullString `bigquery:"director"` // NULLABLE
	Producer bigquery.NullString `bigquery:"producer"` // NULLABLE
	Writer   bigquery.NullString `bigquery:"writer"`   // NULLABLE

	PreProdDays  *big.Rat `bigquery:"pre_prod_days"`  // NULLABLE NUMERIC
	BuildDays    *big.Rat `bigquery:"build_days"`     // NULLABLE NUMERIC
	PreLightDays *big.Rat `bigquery:"pre_light_days"` // NULLABLE NUMERIC
	StudioDays   *big.Rat `bigquery:"studio_days"`    // NULLABLE NUMERIC
	LocationDays *big.Rat `bigquery:"location_days"`  // NULLABLE NUMERIC
	WrapDays     *big.Rat `bigquery:"wrap_days"`      // NULLABLE NUMERIC
	TotalDays    *big.Rat `bigquery:"total_days"`     // NULLABLE NUMERIC

	FirmBidTotalEstimate     *big.Rat `bigquery:"firm_bid_total_estimate"`     // NULLABLE NUMERIC
	FirmBidTotalActual       *big.Rat `bigquery:"firm_bid_total_actual"`       // NULLABLE NUMERIC
	CostPlusTotalEstimate    *big.Rat `bigquery:"cost_plus_total_estimate"`    // NULLABLE NUMERIC
	CostPlusTotalActual      *big.Rat `bigquery:"cost_plus_total_actual"`      // NULLABLE NUMERIC
	GrandTotalEstimate       *big.Rat `bigquery:"grand_total_estimate"`        // NULLABLE NUMERIC
	GrandTotalActual         *big.Rat `bigquery:"grand_total_actual"`          // NULLABLE NUMERIC
	GrandTotalVariance       *big.Rat `bigquery:"grand_total_variance"`        // NULLABLE NUMERIC
	GrandTotalClientActual   *big.Rat `bigquery:"grand_total_client_actual"`   // NULLABLE NUMERIC
	GrandTotalClientVariance *big.Rat `bigquery:"grand_total_client_variance"` // NULLABLE NUMERIC

	VersionID         string              `bigquery:"version_id"`          // REQUIRED
	VersionMajor      int64               `bigquery:"version_major"`       // REQUIRED
	VersionMinor      int64               `bigquery:"version_minor"`       // REQUIRED
	VersionPatch      int64               `bigquery:"version_patch"`       // REQUIRED
	VersionLabel      string              `bigquery:"version_label"`       // REQUIRED
	VersionHash       string              `bigquery:"version_hash"`        // REQUIRED
	VersionStatus     string              `bigquery:"version_status"`      // REQUIRED
	PreviousVersionID bigquery.NullString `bigquery:"previous_version_id"` // NULLABLE

	ValidationStatus string `bigquery:"validation_status"` // REQUIRED
	TotalLineItems   int64  `bigquery:"total_line_items"`  // REQUIRED
	ErrorCount       int64  `bigquery:"error_count"`       // REQUIRED
	WarningCount     int64  `bigquery:"warning_count"`     // REQUIRED
	InfoCount        int64  `bigquery:"info_count"`        // REQUIRED

	UploadTimestamp time.Time `bigquery:"upload_timestamp"` // REQUIRED
	ProcessedAt     time.Time `bigquery:"processed_at"`     // REQUIRED
}

// BudgetDetailRow is a line item, or with IsSubtotal a class summary.
type BudgetDetailRow struct {
	BudgetID        string    `bigquery:"budget_id"`        // REQUIRED
	ProjectID       string    `bigquery:"project_id"`       // REQUIRED
	LineItemID      string    `bigquery:"line_item_id"`     // REQUIRED
	UploadTimestamp time.Time `bigquery:"upload_timestamp"` // REQUIRED

	ClassCode           string              `bigquery:"class_code"`            // REQUIRED
	ClassName           string              `bigquery:"class_name"`            // REQUIRED
	LineItemNumber      string              `bigquery:"line_item_number"`      // REQUIRED
	LineItemDescription string              `bigquery:"line_item_description"` // REQUIRED
	QuantityUnit        bigquery.NullString `bigquery:"quantity_unit"`         // NULLABLE
	SourceRow           bigquery.NullInt64  `bigquery:"source_row"`            // NULLABLE

	EstimateCount           *big.Rat `bigquery:"estimate_count"`            // NULLABLE NUMERIC
	EstimateDays            *big.Rat `bigquery:"estimate_days"`             // NULLABLE NUMERIC
	EstimateRate            *big.Rat `bigquery:"estimate_rate"`             // NULLABLE NUMERIC
	EstimateOTRate          *big.Rat `bigquery:"estimate_ot_rate"`          // NULLABLE NUMERIC
	EstimateOTHours         *big.Rat `bigquery:"estimate_ot_hours"`         // NULLABLE NUMERIC
	EstimateTotal           *big.Rat `bigquery:"estimate_total"`            // NULLABLE NUMERIC
	CalculatedEstimateTotal *big.Rat `bigquery:"calculated_estimate_total"` // NULLABLE NUMERIC
	EstimateVariance        *big.Rat `bigquery:"estimate_variance"`         // NULLABLE NUMERIC

	ActualDays            *big.Rat `bigquery:"actual_days"`             // NULLABLE NUMERIC
	ActualRate            *big.Rat `bigquery:"actual_rate"`             // NULLABLE NUMERIC
	ActualTotal           *big.Rat `bigquery:"actual_total"`            // NULLABLE NUMERIC
	CalculatedActualTotal *big.Rat `bigquery:"calculated_actual_total"` // NULLABLE NUMERIC
	ActualVariance        *big.Rat `bigquery:"actual_variance"`         // NULLABLE NUMERIC

	ClassTotalEstimate *big.Rat `bigquery:"class_total_estimate"` // NULLABLE NUMERIC
	ClassTotalActual   *big.Rat `bigquery:"class_total_actual"`   // NULLABLE NUMERIC
	ClassPnWEstimate   *big.Rat `bigquery:"class_pnw_estimate"`   // NULLABLE NUMERIC
	ClassPnWActual     *big.Rat `bigquery:"class_pnw_actual"`     // NULLABLE NUMERIC
	ClassPnWRate       *big.Rat `bigquery:"class_pnw_rate"`       // NULLABLE NUMERIC
	ClientTotal        *big.Rat `bigquery:"client_total"`         // NULLABLE NUMERIC

	ValidationStatus   string              `bigquery:"validation_status"`   // REQUIRED
	ValidationMessages bigquery.NullString `bigquery:"validation_messages"` // NULLABLE
	IsSubtotal         bool                `bigquery:"is_subtotal"`         // REQUIRED
}

// BudgetValidationRow is one validation message of a budget.
type BudgetValidationRow struct {
	BudgetID            string    `bigquery:"budget_id"`            // REQUIRED
	ProjectID           string    `bigquery:"project_id"`           // REQUIRED
	ValidationID        string    `bigquery:"validation_id"`        // REQUIRED
	UploadTimestamp     time.Time `bigquery:"upload_timestamp"`     // REQUIRED
	ValidationTimestamp time.Time `bigquery:"validation_timestamp"` // REQUIRED

	ValidationType string `bigquery:"validation_type"` // REQUIRED
	Severity       string `bigquery:"severity"`        // REQUIRED
	Message        string `bigquery:"message"`         // REQUIRED

	ClassCode     bigquery.NullString `bigquery:"class_code"`     // NULLABLE
	LineItemID    bigquery.NullString `bigquery:"line_item_id"`   // NULLABLE
	FieldName     bigquery.NullString `bigquery:"field_name"`     // NULLABLE
	ExpectedValue bigquery.NullString `bigquery:"expected_value"` // NULLABLE
	ActualValue   bigquery.NullString `bigquery:"actual_value"`   // NULLABLE
}

// ProjectRow tracks the latest budget of a project.
type ProjectRow struct {
	ProjectID         string              `bigquery:"project_id"`         // REQUIRED
	JobName           string              `bigquery:"job_name"`           // REQUIRED
	ProductionCompany bigquery.NullString `bigquery:"production_company"` // NULLABLE

	LatestBudgetID          string   `bigquery:"latest_budget_id"`           // REQUIRED
	LatestVersion           string   `bigquery:"latest_version"`             // REQUIRED
	LatestEstimateTotal     *big.Rat `bigquery:"latest_estimate_total"`      // NULLABLE NUMERIC
	LatestActualTotal       *big.Rat `bigquery:"latest_actual_total"`        // NULLABLE NUMERIC
	LatestClientActualTotal *big.Rat `bigquery:"latest_client_actual_total"` // NULLABLE NUMERIC
	LatestVariance          *big.Rat `bigquery:"latest_variance"`            // NULLABLE NUMERIC
	LatestClientVariance    *big.Rat `bigquery:"latest_client_variance"`     // NULLABLE NUMERIC

	Status    string    `bigquery:"status"`     // REQUIRED
	UpdatedAt time.Time `bigquery:"updated_at"` // REQUIRED
}
