package assembler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	bq "github.com/dvloznov/budget-sync/internal/bigquery"
	"github.com/dvloznov/budget-sync/internal/budget"
)

// Rows is the warehouse projection of one processed budget.
type Rows struct {
	Budget      *bq.BudgetRow
	Details     []*bq.BudgetDetailRow
	Validations []*bq.BudgetValidationRow
	Project     *bq.ProjectRow
}

// Rows flattens pb into warehouse rows.
func (a *Assembler) Rows(pb *budget.ProcessedBudget) Rows {
	return Rows{
		Budget:      budgetRow(pb),
		Details:     detailRows(pb),
		Validations: validationRows(pb),
		Project:     projectRow(pb),
	}
}

func rat(d decimal.NullDecimal) *big.Rat {
	if !d.Valid {
		return nil
	}
	return d.Decimal.Rat()
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func budgetRow(pb *budget.ProcessedBudget) *bq.BudgetRow {
	cs := pb.CoverSheet
	md := pb.Metadata
	fin := cs.Financials
	issues := md.ProcessingSummary.ValidationIssues

	row := &bq.BudgetRow{
		BudgetID:  pb.BudgetID,
		ProjectID: pb.ProjectID,

		SpreadsheetID: md.Source.SpreadsheetID,
		SheetName:     md.Source.SheetName,
		SheetGID:      bigquery.NullInt64{Int64: md.Source.SheetGID, Valid: true},

		ProjectTitle:      cs.ProjectInfo.Title,
		ProductionCompany: nullString(cs.ProjectInfo.ProductionCompany),
		ContactPhone:      nullString(cs.ProjectInfo.ContactPhone),

		Director: nullString(cs.CoreTeam.Director),
		Producer: nullString(cs.CoreTeam.Producer),
		Writer:   nullString(cs.CoreTeam.Writer),

		PreProdDays:  rat(cs.Timeline.Days("pre_prod_days")),
		BuildDays:    rat(cs.Timeline.Days("build_days")),
		PreLightDays: rat(cs.Timeline.Days("pre_light_days")),
		StudioDays:   rat(cs.Timeline.Days("studio_days")),
		LocationDays: rat(cs.Timeline.Days("location_days")),
		WrapDays:     rat(cs.Timeline.Days("wrap_days")),
		TotalDays:    rat(cs.Timeline.TotalDays),

		FirmBidTotalEstimate:     rat(fin.FirmBid.Estimate),
		FirmBidTotalActual:       rat(fin.FirmBid.Actual),
		CostPlusTotalEstimate:    rat(fin.CostPlus.Estimate),
		CostPlusTotalActual:      rat(fin.CostPlus.Actual),
		GrandTotalEstimate:       rat(fin.GrandTotal.Estimate),
		GrandTotalActual:         rat(fin.GrandTotal.Actual),
		GrandTotalVariance:       rat(fin.GrandTotal.Variance),
		GrandTotalClientActual:   rat(fin.GrandTotal.ClientActual),
		GrandTotalClientVariance: rat(fin.GrandTotal.ClientVariance),

		VersionID:         md.Version.VersionID,
		VersionMajor:      int64(md.Version.Major),
		VersionMinor:      int64(md.Version.Minor),
		VersionPatch:      int64(md.Version.Patch),
		VersionLabel:      md.Version.Label,
		VersionHash:       md.Version.ContentHash,
		VersionStatus:     string(md.VersionStatus),
		PreviousVersionID: nullString(md.Version.PreviousVersionID),

		ValidationStatus: string(pb.ValidationStatus),
		TotalLineItems:   int64(md.ProcessingSummary.TotalLineItems),
		ErrorCount:       int64(issues[budget.SeverityError]),
		WarningCount:     int64(issues[budget.SeverityWarning]),
		InfoCount:        int64(issues[budget.SeverityInfo]),

		UploadTimestamp: md.UploadTimestamp,
		ProcessedAt:     md.ProcessedAt,
	}
	if d := cs.ProjectInfo.Date; d != nil {
		row.ProjectDate = bigquery.NullDate{Date: *d, Valid: true}
	}
	return row
}

func detailRows(pb *budget.ProcessedBudget) []*bq.BudgetDetailRow {
	summaries := make(map[string]budget.ClassSummary, len(pb.ClassSummaries))
	for _, s := range pb.ClassSummaries {
		summaries[s.ClassCode] = s
	}

	rows := make([]*bq.BudgetDetailRow, 0, len(pb.LineItems)+len(pb.ClassSummaries))
	for _, li := range pb.LineItems {
		s := summaries[li.ClassCode]
		row := &bq.BudgetDetailRow{
			BudgetID:        pb.BudgetID,
			ProjectID:       pb.ProjectID,
			LineItemID:      li.LineItemID,
			UploadTimestamp: pb.Metadata.UploadTimestamp,

			ClassCode:           li.ClassCode,
			ClassName:           li.ClassName,
			LineItemNumber:      li.LineItemNumber,
			LineItemDescription: li.Description,
			QuantityUnit:        nullString(li.QuantityUnit),
			SourceRow:           bigquery.NullInt64{Int64: int64(li.SourceRow), Valid: li.SourceRow > 0},

			EstimateCount:           rat(li.EstimateCount),
			EstimateDays:            rat(li.EstimateDays),
			EstimateRate:            rat(li.EstimateRate),
			EstimateOTRate:          rat(li.EstimateOTRate),
			EstimateOTHours:         rat(li.EstimateOTHours),
			EstimateTotal:           rat(li.EstimateTotal),
			CalculatedEstimateTotal: rat(li.CalculatedEstimateTotal),
			EstimateVariance:        rat(li.EstimateVariance),

			ActualDays:            rat(li.ActualDays),
			ActualRate:            rat(li.ActualRate),
			ActualTotal:           rat(li.ActualTotal),
			CalculatedActualTotal: rat(li.CalculatedActualTotal),
			ActualVariance:        rat(li.ActualVariance),

			ValidationStatus:   string(li.ValidationStatus),
			ValidationMessages: nullString(strings.Join(li.ValidationMessages, "; ")),
		}
		withClassTotals(row, s)
		rows = append(rows, row)
	}

	for _, s := range pb.ClassSummaries {
		row := &bq.BudgetDetailRow{
			BudgetID:        pb.BudgetID,
			ProjectID:       pb.ProjectID,
			LineItemID:      budget.LineItemID(pb.BudgetID, s.ClassCode, "subtotal"),
			UploadTimestamp: pb.Metadata.UploadTimestamp,

			ClassCode:           s.ClassCode,
			ClassName:           s.ClassName,
			LineItemNumber:      "subtotal",
			LineItemDescription: fmt.Sprintf("Class %s subtotal", s.ClassCode),

			EstimateTotal:           rat(s.SubtotalEstimate),
			CalculatedEstimateTotal: rat(s.ComputedEstimate),
			ActualTotal:             rat(s.SubtotalActual),
			CalculatedActualTotal:   rat(s.ComputedActual),

			ValidationStatus: string(classStatus(pb.ValidationMessages, s.ClassCode)),
			IsSubtotal:       true,
		}
		withClassTotals(row, s)
		rows = append(rows, row)
	}
	return rows
}

func withClassTotals(row *bq.BudgetDetailRow, s budget.ClassSummary) {
	row.ClassTotalEstimate = rat(s.ClassTotalEstimate)
	row.ClassTotalActual = rat(s.ClassTotalActual)
	row.ClassPnWEstimate = rat(s.PnWEstimate)
	row.ClassPnWActual = rat(s.PnWActual)
	row.ClassPnWRate = rat(s.PnWRate)
	row.ClientTotal = rat(s.ClientTotal)
}

// classStatus rolls up the class-level messages of one class.
func classStatus(msgs []budget.ValidationMessage, classCode string) budget.Status {
	var own []budget.ValidationMessage
	for _, m := range msgs {
		if m.ValidationType == budget.TypeClassTotal && m.ClassCode == classCode {
			own = append(own, m)
		}
	}
	return budget.Rollup(own)
}

// ValidationID builds "{budget_id}_validation_{sha8}" where sha8 is the
// first eight hex digits of the hash of the message and its position.
func ValidationID(budgetID string, index int, m budget.ValidationMessage) string {
	data, _ := json.Marshal(struct {
		Index   int                      `json:"index"`
		Message budget.ValidationMessage `json:"message"`
	}{index, m})
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s_validation_%s", budgetID, hex.EncodeToString(sum[:])[:8])
}

func validationRows(pb *budget.ProcessedBudget) []*bq.BudgetValidationRow {
	rows := make([]*bq.BudgetValidationRow, 0, len(pb.ValidationMessages))
	for i, m := range pb.ValidationMessages {
		rows = append(rows, &bq.BudgetValidationRow{
			BudgetID:            pb.BudgetID,
			ProjectID:           pb.ProjectID,
			ValidationID:        ValidationID(pb.BudgetID, i, m),
			UploadTimestamp:     pb.Metadata.UploadTimestamp,
			ValidationTimestamp: pb.Metadata.ProcessedAt,
			ValidationType:      string(m.ValidationType),
			Severity:            string(m.Severity),
			Message:             m.Message,
			ClassCode:           nullString(m.ClassCode),
			LineItemID:          nullString(m.LineItemID),
			FieldName:           nullString(m.FieldName),
			ExpectedValue:       nullString(m.ExpectedValue),
			ActualValue:         nullString(m.ActualValue),
		})
	}
	return rows
}

func projectRow(pb *budget.ProcessedBudget) *bq.ProjectRow {
	gt := pb.CoverSheet.Financials.GrandTotal
	jobName := pb.CoverSheet.ProjectInfo.Title
	if jobName == "" {
		jobName = pb.ProjectID
	}
	return &bq.ProjectRow{
		ProjectID:               pb.ProjectID,
		JobName:                 jobName,
		ProductionCompany:       nullString(pb.CoverSheet.ProjectInfo.ProductionCompany),
		LatestBudgetID:          pb.BudgetID,
		LatestVersion:           pb.Metadata.Version.Label,
		LatestEstimateTotal:     rat(gt.Estimate),
		LatestActualTotal:       rat(gt.Actual),
		LatestClientActualTotal: rat(gt.ClientActual),
		LatestVariance:          rat(gt.Variance),
		LatestClientVariance:    rat(gt.ClientVariance),
		Status:                  "active",
		UpdatedAt:               pb.Metadata.ProcessedAt,
	}
}
