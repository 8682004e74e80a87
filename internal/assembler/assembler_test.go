package assembler

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleInput() Input {
	uploaded := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	date := civil.Date{Year: 2024, Month: 3, Day: 15}
	id := budget.Identity{SpreadsheetID: "S1", SheetName: "Estimate"}
	version, status := versioning.Next(id, "abc", uploaded, nil, nil)

	return Input{
		BudgetID: "b1",
		Source: sheet.Locator{
			SpreadsheetID:    "S1",
			SpreadsheetTitle: "ACME0324SPOT_Estimate",
			SheetName:        "Estimate",
			SheetGID:         7,
		},
		CoverSheet: budget.CoverSheet{
			ProjectInfo: budget.ProjectInfo{Title: "ACME Spot", Date: &date},
			Timeline: budget.Timeline{
				Phases:    []budget.PhaseDays{{Phase: "studio_days", Days: dec("2")}},
				TotalDays: dec("2"),
			},
			Financials: budget.Financials{GrandTotal: budget.Figures{Estimate: dec("3280"), Actual: dec("3100")}},
		},
		LineItems: []budget.LineItem{{
			LineItemID: "b1_A_1", BudgetID: "b1", ClassCode: "A", ClassName: "CREW", LineItemNumber: "1",
			Description: "Producer", QuantityUnit: "days", SourceRow: 4,
			EstimateDays: dec("5"), EstimateRate: dec("200"), EstimateTotal: dec("1000"),
			CalculatedEstimateTotal: dec("1000"), EstimateVariance: dec("0"),
			ValidationStatus:   budget.StatusValid,
			ValidationMessages: []string{},
		}},
		Summaries: []budget.ClassSummary{{
			BudgetID: "b1", ClassCode: "A", ClassName: "CREW", LineItemCount: 1,
			SubtotalEstimate: dec("1000"), PnWRate: dec("0.28"), ComputedEstimate: dec("1000"),
		}},
		ProcessedClasses: []string{"A"},
		SkippedClasses:   []string{"B"},
		Messages: []budget.ValidationMessage{
			{ValidationType: budget.TypeClassTotal, Severity: budget.SeverityError, Message: "class B unreadable", ClassCode: "B"},
			{ValidationType: budget.TypeCoverSheet, Severity: budget.SeverityInfo, Message: "no company", FieldName: "production_company"},
		},
		Version:         versioning.Resolution{Version: version, Status: status},
		UploadTimestamp: uploaded,
		ProcessedAt:     uploaded.Add(time.Second),
	}
}

func TestProjectID(t *testing.T) {
	assert.Equal(t, "ACME0324SPOT", ProjectID(sheet.Locator{SpreadsheetID: "S1", SpreadsheetTitle: "ACME0324SPOT_Estimate"}))
	assert.Equal(t, "Untitled", ProjectID(sheet.Locator{SpreadsheetID: "S1", SpreadsheetTitle: "Untitled"}))
	assert.Equal(t, "S1", ProjectID(sheet.Locator{SpreadsheetID: "S1"}))
	assert.Equal(t, "S1", ProjectID(sheet.Locator{SpreadsheetID: "S1", SpreadsheetTitle: "_x"}))
}

func TestAssemble_Document(t *testing.T) {
	pb := New().Assemble(sampleInput())

	assert.Equal(t, "b1", pb.BudgetID)
	assert.Equal(t, "ACME0324SPOT", pb.ProjectID)
	assert.Equal(t, budget.StatusError, pb.ValidationStatus)

	md := pb.Metadata
	assert.Equal(t, "1.0.0", md.Version.Label)
	assert.Equal(t, budget.VersionDraft, md.VersionStatus)
	assert.Equal(t, "abc", md.Version.ContentHash)
	assert.Equal(t, 1, md.ProcessingSummary.TotalLineItems)
	assert.Equal(t, []string{"B"}, md.ProcessingSummary.SkippedClasses)
	assert.Equal(t, 1, md.ProcessingSummary.ValidationIssues[budget.SeverityError])
	assert.Equal(t, 1, md.ProcessingSummary.ValidationIssues[budget.SeverityInfo])

	data, err := json.Marshal(pb)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"budget_id", "cover_sheet", "line_items", "metadata", "validation_status"} {
		assert.Contains(t, doc, key)
	}
	version := doc["metadata"].(map[string]any)["version"].(map[string]any)
	assert.EqualValues(t, 1, version["major"])
}

func TestAssemble_EmptyRunHasEmptyLists(t *testing.T) {
	in := sampleInput()
	in.LineItems, in.Summaries, in.Messages, in.SkippedClasses = nil, nil, nil, nil

	pb := New().Assemble(in)

	data, err := json.Marshal(pb)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"line_items":[]`)
	assert.Contains(t, string(data), `"validation_messages":[]`)
	assert.Equal(t, budget.StatusValid, pb.ValidationStatus)
}

func TestRows_Projection(t *testing.T) {
	a := New()
	pb := a.Assemble(sampleInput())

	rows := a.Rows(pb)

	b := rows.Budget
	assert.Equal(t, "b1", b.BudgetID)
	assert.Equal(t, "ACME0324SPOT", b.ProjectID)
	assert.Equal(t, "Estimate", b.SheetName)
	assert.Equal(t, int64(7), b.SheetGID.Int64)
	assert.True(t, b.ProjectDate.Valid)
	assert.False(t, b.ProductionCompany.Valid)
	assert.Equal(t, "2", b.StudioDays.RatString())
	assert.Nil(t, b.BuildDays)
	assert.Equal(t, "3280", b.GrandTotalEstimate.RatString())
	assert.Nil(t, b.FirmBidTotalEstimate)
	assert.Equal(t, "1.0.0", b.VersionLabel)
	assert.Equal(t, "error", b.ValidationStatus)
	assert.Equal(t, int64(1), b.ErrorCount)

	require.Len(t, rows.Details, 2)
	item, subtotal := rows.Details[0], rows.Details[1]
	assert.Equal(t, "b1_A_1", item.LineItemID)
	assert.False(t, item.IsSubtotal)
	assert.Equal(t, "1000", item.CalculatedEstimateTotal.RatString())
	assert.Equal(t, "7/25", item.ClassPnWRate.RatString())
	assert.False(t, item.ValidationMessages.Valid)

	assert.True(t, subtotal.IsSubtotal)
	assert.Equal(t, "b1_A_subtotal", subtotal.LineItemID)
	assert.Equal(t, "1000", subtotal.EstimateTotal.RatString())
	assert.Equal(t, "valid", subtotal.ValidationStatus)

	require.Len(t, rows.Validations, 2)
	for _, v := range rows.Validations {
		assert.True(t, strings.HasPrefix(v.ValidationID, "b1_validation_"))
		assert.Len(t, strings.TrimPrefix(v.ValidationID, "b1_validation_"), 8)
		assert.Equal(t, "b1", v.BudgetID)
	}
	assert.NotEqual(t, rows.Validations[0].ValidationID, rows.Validations[1].ValidationID)
	assert.Equal(t, "B", rows.Validations[0].ClassCode.StringVal)

	p := rows.Project
	assert.Equal(t, "ACME0324SPOT", p.ProjectID)
	assert.Equal(t, "ACME Spot", p.JobName)
	assert.Equal(t, "b1", p.LatestBudgetID)
	assert.Equal(t, "3100", p.LatestActualTotal.RatString())
}

func TestValidationID_Deterministic(t *testing.T) {
	m := budget.ValidationMessage{Severity: budget.SeverityWarning, Message: "x"}
	assert.Equal(t, ValidationID("b", 0, m), ValidationID("b", 0, m))
	assert.NotEqual(t, ValidationID("b", 0, m), ValidationID("b", 1, m))
}
