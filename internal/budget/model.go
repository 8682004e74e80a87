// Package budget holds the processed-budget domain model shared by the
// extraction, validation, versioning and output stages.
package budget

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Masterminds/semver/v3"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/sheet"
)

// Identity is the versioning key of a budget: one sheet of one spreadsheet.
type Identity struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
}

// Validate reports ErrMissingIdentity when either half is blank.
func (id Identity) Validate() error {
	if strings.TrimSpace(id.SpreadsheetID) == "" || strings.TrimSpace(id.SheetName) == "" {
		return ErrMissingIdentity
	}
	return nil
}

func (id Identity) String() string {
	return id.SpreadsheetID + "/" + id.SheetName
}

// LineItemID builds the composite line-item key.
func LineItemID(budgetID, classCode, lineItemNumber string) string {
	return fmt.Sprintf("%s_%s_%s", budgetID, classCode, lineItemNumber)
}

// LineItem is one extracted row of a class.
type LineItem struct {
	LineItemID     string `json:"line_item_id"`
	BudgetID       string `json:"budget_id"`
	ClassCode      string `json:"class_code"`
	ClassName      string `json:"class_name"`
	LineItemNumber string `json:"line_item_number"`
	Description    string `json:"description"`
	QuantityUnit   string `json:"quantity_unit"`
	SourceRow      int    `json:"source_row"`

	// Raw holds the non-blank source text of each numeric field.
	Raw map[string]string `json:"raw,omitempty"`

	EstimateCount   decimal.NullDecimal `json:"estimate_count"`
	EstimateDays    decimal.NullDecimal `json:"estimate_days"`
	EstimateRate    decimal.NullDecimal `json:"estimate_rate"`
	EstimateOTRate  decimal.NullDecimal `json:"estimate_ot_rate"`
	EstimateOTHours decimal.NullDecimal `json:"estimate_ot_hours"`
	EstimateTotal   decimal.NullDecimal `json:"estimate_total"`

	ActualDays  decimal.NullDecimal `json:"actual_days"`
	ActualRate  decimal.NullDecimal `json:"actual_rate"`
	ActualTotal decimal.NullDecimal `json:"actual_total"`

	CalculatedEstimateTotal decimal.NullDecimal `json:"calculated_estimate_total"`
	CalculatedActualTotal   decimal.NullDecimal `json:"calculated_actual_total"`
	EstimateVariance        decimal.NullDecimal `json:"estimate_variance"`
	ActualVariance          decimal.NullDecimal `json:"actual_variance"`

	ValidationStatus   Status   `json:"validation_status"`
	ValidationMessages []string `json:"validation_messages"`
}

// ClassSummary carries the declared totals of a class together with the sums
// of its extracted line items.
type ClassSummary struct {
	BudgetID      string `json:"budget_id"`
	ClassCode     string `json:"class_code"`
	ClassName     string `json:"class_name"`
	LineItemCount int    `json:"line_item_count"`

	SubtotalEstimate decimal.NullDecimal `json:"subtotal_estimate"`
	SubtotalActual   decimal.NullDecimal `json:"subtotal_actual"`

	ClassTotalEstimate decimal.NullDecimal `json:"class_total_estimate"`
	ClassTotalActual   decimal.NullDecimal `json:"class_total_actual"`

	PnWEstimate decimal.NullDecimal `json:"pnw_estimate"`
	PnWActual   decimal.NullDecimal `json:"pnw_actual"`
	PnWRate     decimal.NullDecimal `json:"pnw_rate"`

	ClientTotal decimal.NullDecimal `json:"client_total"`

	ComputedEstimate decimal.NullDecimal `json:"computed_estimate"`
	ComputedActual   decimal.NullDecimal `json:"computed_actual"`
}

// ProjectInfo is the header block of the cover sheet.
type ProjectInfo struct {
	Title             string      `json:"title"`
	ProductionCompany string      `json:"production_company"`
	ContactPhone      string      `json:"contact_phone"`
	Date              *civil.Date `json:"date"`
}

// CoreTeam lists the key creatives named on the cover sheet.
type CoreTeam struct {
	Director string `json:"director"`
	Producer string `json:"producer"`
	Writer   string `json:"writer"`
}

// PhaseDays is the day count of one production phase.
type PhaseDays struct {
	Phase string              `json:"phase"`
	Days  decimal.NullDecimal `json:"days"`
}

// Timeline holds the per-phase day counts in template order.
type Timeline struct {
	Phases    []PhaseDays         `json:"phases"`
	TotalDays decimal.NullDecimal `json:"total_days"`
}

// Days returns the count of a phase, null when absent.
func (t Timeline) Days(phase string) decimal.NullDecimal {
	for _, p := range t.Phases {
		if p.Phase == phase {
			return p.Days
		}
	}
	return decimal.NullDecimal{}
}

// Figures are the five money columns of a cover-sheet financial row.
type Figures struct {
	Estimate       decimal.NullDecimal `json:"estimate"`
	Actual         decimal.NullDecimal `json:"actual"`
	Variance       decimal.NullDecimal `json:"variance"`
	ClientActual   decimal.NullDecimal `json:"client_actual"`
	ClientVariance decimal.NullDecimal `json:"client_variance"`
}

// FinancialLine is a labelled row of the cover-sheet summary.
type FinancialLine struct {
	Key string `json:"key"`
	Figures
}

// Financials is the cover-sheet money summary.
type Financials struct {
	FirmBid       Figures         `json:"firm_bid"`
	CostPlus      Figures         `json:"cost_plus"`
	GrandTotal    Figures         `json:"grand_total"`
	FirmBidLines  []FinancialLine `json:"firm_bid_lines"`
	CostPlusLines []FinancialLine `json:"cost_plus_lines"`
}

// CoverSheet is the extracted cover sheet.
type CoverSheet struct {
	ProjectInfo ProjectInfo `json:"project_info"`
	CoreTeam    CoreTeam    `json:"core_team"`
	Timeline    Timeline    `json:"timeline"`
	Financials  Financials  `json:"financials"`
}

// VersionStatus describes how a version relates to its predecessor.
type VersionStatus string

const (
	VersionDraft       VersionStatus = "draft"
	VersionRevised     VersionStatus = "revised"
	VersionReprocessed VersionStatus = "reprocessed"
	VersionNewMajor    VersionStatus = "new_major"
	VersionRecovered   VersionStatus = "recovered"
)

// BudgetVersion is the persisted version state of one sheet identity.
type BudgetVersion struct {
	VersionID         string    `json:"version_id"`
	SpreadsheetID     string    `json:"spreadsheet_id"`
	SheetName         string    `json:"sheet_name"`
	Major             int       `json:"major"`
	Minor             int       `json:"minor"`
	Patch             int       `json:"patch"`
	ContentHash       string    `json:"content_hash"`
	FirstSeen         time.Time `json:"first_seen"`
	LastUpdated       time.Time `json:"last_updated"`
	PreviousVersionID string    `json:"previous_version_id,omitempty"`
}

// Identity returns the sheet identity the version belongs to.
func (v BudgetVersion) Identity() Identity {
	return Identity{SpreadsheetID: v.SpreadsheetID, SheetName: v.SheetName}
}

// Semver returns the version as a semantic version.
func (v BudgetVersion) Semver() *semver.Version {
	return semver.New(uint64(v.Major), uint64(v.Minor), uint64(v.Patch), "", "")
}

// Label renders the version as "major.minor.patch".
func (v BudgetVersion) Label() string {
	return v.Semver().String()
}

// Less reports whether v precedes o in version order.
func (v BudgetVersion) Less(o BudgetVersion) bool {
	return v.Semver().LessThan(o.Semver())
}

// VersionInfo is the version block of the document metadata.
type VersionInfo struct {
	Major             int    `json:"major"`
	Minor             int    `json:"minor"`
	Patch             int    `json:"patch"`
	Label             string `json:"label"`
	VersionID         string `json:"version_id"`
	PreviousVersionID string `json:"previous_version_id,omitempty"`
	ContentHash       string `json:"content_hash"`
}

// ProcessingSummary counts what a run extracted.
type ProcessingSummary struct {
	TotalLineItems   int              `json:"total_line_items"`
	ProcessedClasses []string         `json:"processed_classes"`
	SkippedClasses   []string         `json:"skipped_classes"`
	ValidationIssues map[Severity]int `json:"validation_issues"`
}

// Metadata describes the upload and the resolved version.
type Metadata struct {
	UploadTimestamp   time.Time         `json:"upload_timestamp"`
	ProcessedAt       time.Time         `json:"processed_at"`
	Version           VersionInfo       `json:"version"`
	VersionStatus     VersionStatus     `json:"version_status"`
	Source            sheet.Locator     `json:"source"`
	ProcessingSummary ProcessingSummary `json:"processing_summary"`
}

// ProcessedBudget is the canonical document of one processing run.
type ProcessedBudget struct {
	BudgetID           string              `json:"budget_id"`
	ProjectID          string              `json:"project_id"`
	ValidationStatus   Status              `json:"validation_status"`
	CoverSheet         CoverSheet          `json:"cover_sheet"`
	LineItems          []LineItem          `json:"line_items"`
	ClassSummaries     []ClassSummary      `json:"class_summaries"`
	ValidationMessages []ValidationMessage `json:"validation_messages"`
	Metadata           Metadata            `json:"metadata"`
}
