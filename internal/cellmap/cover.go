package cellmap

import (
	"fmt"

	"github.com/dvloznov/budget-sync/internal/sheet"
)

// FinancialColumns are the column letters of a cover-sheet financial row.
type FinancialColumns struct {
	Estimate       string
	Actual         string
	Variance       string
	ClientActual   string
	ClientVariance string
}

// FinancialLine is one labelled row of the cover-sheet financial summary.
type FinancialLine struct {
	Key string
	Row int
}

// TimelinePhase is one named day-count cell.
type TimelinePhase struct {
	Key  string
	Cell string
}

// CoverSheetMapping is the cell geography of the cover sheet.
type CoverSheetMapping struct {
	ProjectTitle      string
	ProductionCompany string
	ContactPhone      string
	Date              string

	Director string
	Producer string
	Writer   string

	Timeline []TimelinePhase

	Financial FinancialColumns

	FirmBidLines    []FinancialLine
	FirmBidTotalRow int
	CostPlusLines   []FinancialLine
	CostPlusRow     int
	GrandTotalRow   int
}

// FinancialCell returns the A1 reference of a financial column at row.
func (c CoverSheetMapping) FinancialCell(column string, row int) string {
	if column == "" || row <= 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", column, row)
}

// Cells lists every cell the cover sheet reads.
func (c CoverSheetMapping) Cells() []string {
	refs := []string{
		c.ProjectTitle, c.ProductionCompany, c.ContactPhone, c.Date,
		c.Director, c.Producer, c.Writer,
	}
	for _, p := range c.Timeline {
		refs = append(refs, p.Cell)
	}

	rows := []int{c.FirmBidTotalRow, c.CostPlusRow, c.GrandTotalRow}
	for _, l := range c.FirmBidLines {
		rows = append(rows, l.Row)
	}
	for _, l := range c.CostPlusLines {
		rows = append(rows, l.Row)
	}
	f := c.Financial
	for _, row := range rows {
		for _, col := range []string{f.Estimate, f.Actual, f.Variance, f.ClientActual, f.ClientVariance} {
			if ref := c.FinancialCell(col, row); ref != "" {
				refs = append(refs, ref)
			}
		}
	}

	out := refs[:0]
	for _, r := range refs {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (c CoverSheetMapping) validate() error {
	if c.ProjectTitle == "" {
		return fmt.Errorf("cover sheet: project title cell is required")
	}
	if c.Financial.Estimate == "" {
		return fmt.Errorf("cover sheet: estimate column is required")
	}
	for _, ref := range c.Cells() {
		if _, err := sheet.ParseCell(ref); err != nil {
			return fmt.Errorf("cover sheet: %w", err)
		}
	}
	return nil
}

var aicpCoverSheet = CoverSheetMapping{
	ProjectTitle:      "C5",
	ProductionCompany: "C6",
	ContactPhone:      "C7",
	Date:              "H4",

	Director: "C9",
	Producer: "C10",
	Writer:   "C11",

	Timeline: []TimelinePhase{
		{Key: "pre_prod_days", Cell: "D12"},
		{Key: "build_days", Cell: "D13"},
		{Key: "pre_light_days", Cell: "D14"},
		{Key: "studio_days", Cell: "D15"},
		{Key: "location_days", Cell: "D16"},
		{Key: "wrap_days", Cell: "D17"},
	},

	Financial: FinancialColumns{
		Estimate:       "G",
		Actual:         "H",
		Variance:       "I",
		ClientActual:   "J",
		ClientVariance: "K",
	},

	FirmBidLines: []FinancialLine{
		{Key: "pre_production_wrap", Row: 22},
		{Key: "shooting_crew_labor", Row: 23},
		{Key: "location_studio_travel", Row: 24},
		{Key: "props_wardrobe", Row: 25},
		{Key: "art_labor", Row: 26},
		{Key: "equipment", Row: 27},
		{Key: "film_stock", Row: 28},
		{Key: "creative_fees", Row: 29},
		{Key: "director_fees", Row: 30},
		{Key: "talent_costs", Row: 31},
		{Key: "agency_services", Row: 32},
		{Key: "post_expenses", Row: 33},
		{Key: "production_fee", Row: 34},
	},
	FirmBidTotalRow: 35,

	CostPlusLines: []FinancialLine{
		{Key: "pnw", Row: 40},
		{Key: "production_fee_pnw", Row: 41},
		{Key: "cost_plus_expenses", Row: 42},
		{Key: "production_fee_cost_plus", Row: 43},
	},
	CostPlusRow: 45,

	GrandTotalRow: 47,
}
