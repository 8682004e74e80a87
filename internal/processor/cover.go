package processor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/cellmap"
	"github.com/dvloznov/budget-sync/internal/sheet"
)

// CoverResult is the output of processing the cover sheet.
type CoverResult struct {
	CoverSheet budget.CoverSheet
	Messages   []budget.ValidationMessage
	// Extracted is false when every cover-sheet cell was blank.
	Extracted bool
}

// CoverSheetProcessor extracts project, team, timeline and financial data.
type CoverSheetProcessor struct {
	opts Options
}

// NewCoverSheetProcessor creates a CoverSheetProcessor.
func NewCoverSheetProcessor(opts Options) *CoverSheetProcessor {
	return &CoverSheetProcessor{opts: opts}
}

// Process reads the cover sheet described by m from g.
func (p *CoverSheetProcessor) Process(m cellmap.CoverSheetMapping, g *sheet.Grid) CoverResult {
	c := &collector{}
	var res CoverResult

	if coverBlank(m, g) {
		c.add(budget.ValidationMessage{
			ValidationType: budget.TypeCoverSheet,
			Severity:       budget.SeverityError,
			Message:        (&budget.ExtractionError{Scope: "cover sheet", Reason: "no cover-sheet cells contain data"}).Error(),
			FieldName:      "cover_sheet",
		})
		res.Messages = c.msgs
		return res
	}
	res.Extracted = true

	cs := &res.CoverSheet
	cs.ProjectInfo = budget.ProjectInfo{
		Title:             g.At(m.ProjectTitle),
		ProductionCompany: g.At(m.ProductionCompany),
		ContactPhone:      g.At(m.ContactPhone),
	}
	cs.CoreTeam = budget.CoreTeam{
		Director: g.At(m.Director),
		Producer: g.At(m.Producer),
		Writer:   g.At(m.Writer),
	}

	if cs.ProjectInfo.Title == "" {
		c.add(required("project_title", fmt.Sprintf("Missing project title (%s)", m.ProjectTitle)))
	}
	if cs.ProjectInfo.ProductionCompany == "" {
		c.add(budget.ValidationMessage{
			ValidationType: budget.TypeCoverSheet,
			Severity:       budget.SeverityInfo,
			Message:        "Production company is not filled in",
			FieldName:      "production_company",
		})
	}

	date, err := budget.ParseDate(g.At(m.Date))
	if err != nil {
		c.formatError(budget.TypeCoverSheet, budget.SeverityError, "", "", "date", err)
	}
	cs.ProjectInfo.Date = date

	cs.Timeline = p.timeline(m, g, c)
	cs.Financials = p.financials(m, g, c)

	if !cs.Financials.FirmBid.Estimate.Valid && !cs.Financials.GrandTotal.Estimate.Valid {
		c.add(required("firm_bid_estimate", "Missing both firm bid and grand total estimates"))
	}
	p.checkFirmBid(cs.Financials, c)

	res.Messages = c.msgs
	return res
}

func required(field, message string) budget.ValidationMessage {
	return budget.ValidationMessage{
		ValidationType: budget.TypeCoverSheet,
		Severity:       budget.SeverityError,
		Message:        message,
		FieldName:      field,
	}
}

func coverBlank(m cellmap.CoverSheetMapping, g *sheet.Grid) bool {
	for _, ref := range m.Cells() {
		if g.At(ref) != "" {
			return false
		}
	}
	return true
}

func (p *CoverSheetProcessor) timeline(m cellmap.CoverSheetMapping, g *sheet.Grid, c *collector) budget.Timeline {
	var t budget.Timeline
	total := decimal.Zero
	seen := false

	for _, phase := range m.Timeline {
		days, err := budget.ParseQuantity(g.At(phase.Cell))
		if err != nil {
			c.formatError(budget.TypeCoverSheet, budget.SeverityWarning, "", "", phase.Key, err)
		}
		if days.Valid {
			total = total.Add(days.Decimal)
			seen = true
		}
		t.Phases = append(t.Phases, budget.PhaseDays{Phase: phase.Key, Days: days})
	}
	if seen {
		t.TotalDays = decimal.NewNullDecimal(total)
	}
	return t
}

func (p *CoverSheetProcessor) financials(m cellmap.CoverSheetMapping, g *sheet.Grid, c *collector) budget.Financials {
	figures := func(key string, row int, requiredEstimate bool) budget.Figures {
		cols := m.Financial
		read := func(suffix, column string, sev budget.Severity) decimal.NullDecimal {
			v, err := budget.ParseCurrency(g.At(m.FinancialCell(column, row)))
			if err != nil {
				c.formatError(budget.TypeCoverSheet, sev, "", "", key+"_"+suffix, err)
			}
			return v
		}
		estimateSeverity := budget.SeverityWarning
		if requiredEstimate {
			estimateSeverity = budget.SeverityError
		}
		return budget.Figures{
			Estimate:       read("estimate", cols.Estimate, estimateSeverity),
			Actual:         read("actual", cols.Actual, budget.SeverityWarning),
			Variance:       read("variance", cols.Variance, budget.SeverityWarning),
			ClientActual:   read("client_actual", cols.ClientActual, budget.SeverityWarning),
			ClientVariance: read("client_variance", cols.ClientVariance, budget.SeverityWarning),
		}
	}

	var f budget.Financials
	for _, line := range m.FirmBidLines {
		f.FirmBidLines = append(f.FirmBidLines, budget.FinancialLine{Key: line.Key, Figures: figures(line.Key, line.Row, false)})
	}
	f.FirmBid = figures("firm_bid", m.FirmBidTotalRow, true)
	for _, line := range m.CostPlusLines {
		f.CostPlusLines = append(f.CostPlusLines, budget.FinancialLine{Key: line.Key, Figures: figures(line.Key, line.Row, false)})
	}
	f.CostPlus = figures("cost_plus", m.CostPlusRow, false)
	f.GrandTotal = figures("grand_total", m.GrandTotalRow, true)
	return f
}

// checkFirmBid compares the firm-bid category lines with the firm-bid subtotal.
func (p *CoverSheetProcessor) checkFirmBid(f budget.Financials, c *collector) {
	if !f.FirmBid.Estimate.Valid {
		return
	}
	sum := decimal.Zero
	seen := false
	for _, line := range f.FirmBidLines {
		if line.Estimate.Valid {
			sum = sum.Add(line.Estimate.Decimal)
			seen = true
		}
	}
	if !seen || !exceeds(f.FirmBid.Estimate.Decimal.Sub(sum), p.opts.VarianceTolerance) {
		return
	}
	c.add(budget.ValidationMessage{
		ValidationType: budget.TypeCoverSheet,
		Severity:       budget.SeverityWarning,
		Message:        mismatch("Firm bid total", sum, f.FirmBid.Estimate.Decimal),
		FieldName:      "firm_bid_estimate",
		ExpectedValue:  money(sum),
		ActualValue:    money(f.FirmBid.Estimate.Decimal),
	})
}
