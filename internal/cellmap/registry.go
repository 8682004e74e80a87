// Package cellmap describes where every budget class and the cover sheet live
// in the AICP template. It holds data only; extraction lives in processor.
package cellmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/budget-sync/internal/sheet"
)

// QuantityUnit names what the quantity column of a class counts.
type QuantityUnit string

const (
	UnitDays  QuantityUnit = "days"
	UnitHours QuantityUnit = "hours"
	UnitUnits QuantityUnit = "units"
)

// Columns holds the column letters of a class's line-item fields.
// An empty string means the template has no such column for the class.
type Columns struct {
	Number      string
	Description string

	EstimateCount   string
	EstimateDays    string
	EstimateRate    string
	EstimateOTRate  string
	EstimateOTHours string
	EstimateTotal   string

	ActualDays  string
	ActualRate  string
	ActualTotal string
}

// ClassMapping is the cell geography of one lettered class.
type ClassMapping struct {
	ClassCode string
	ClassName string

	CodeCell string
	NameCell string

	// FirstRow and LastRow bound the line-item rows, inclusive.
	FirstRow int
	LastRow  int

	Unit    QuantityUnit
	Columns Columns

	SubtotalEstimateCell string
	SubtotalActualCell   string

	// PnWLabelCell holds the "P&W" caption. PnWRateCell holds the
	// surcharge percentage applied to the estimate subtotal and
	// PnWActualCell the actual surcharge amount.
	PnWLabelCell  string
	PnWRateCell   string
	PnWActualCell string

	TotalEstimateCell string
	TotalActualCell   string

	ClientTotalCell string
}

// HasPnW reports whether the class carries a P&W surcharge.
func (m ClassMapping) HasPnW() bool {
	return m.PnWRateCell != ""
}

// Cell resolves a column of the mapping at a row. ok is false for absent columns.
func (m ClassMapping) Cell(column string, row int) (sheet.Cell, bool) {
	if column == "" {
		return sheet.Cell{}, false
	}
	col, err := sheet.ColumnNumber(column)
	if err != nil {
		return sheet.Cell{}, false
	}
	return sheet.Cell{Row: row, Col: col}, true
}

// LineItemRange is the rectangle spanned by the line-item rows and columns.
func (m ClassMapping) LineItemRange() sheet.Range {
	lo, hi := 0, 0
	for _, letters := range m.columnLetters() {
		n, err := sheet.ColumnNumber(letters)
		if err != nil {
			continue
		}
		if lo == 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return sheet.Range{
		Start: sheet.Cell{Row: m.FirstRow, Col: lo},
		End:   sheet.Cell{Row: m.LastRow, Col: hi},
	}
}

// SummaryCells lists every single-cell reference outside the line-item rows.
func (m ClassMapping) SummaryCells() []string {
	var refs []string
	for _, ref := range []string{
		m.CodeCell, m.NameCell,
		m.SubtotalEstimateCell, m.SubtotalActualCell,
		m.PnWLabelCell, m.PnWRateCell, m.PnWActualCell,
		m.TotalEstimateCell, m.TotalActualCell,
		m.ClientTotalCell,
	} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (m ClassMapping) columnLetters() []string {
	c := m.Columns
	var out []string
	for _, s := range []string{
		c.Number, c.Description,
		c.EstimateCount, c.EstimateDays, c.EstimateRate, c.EstimateOTRate, c.EstimateOTHours, c.EstimateTotal,
		c.ActualDays, c.ActualRate, c.ActualTotal,
	} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// UnknownClassError is returned for a class code outside the registry.
type UnknownClassError struct {
	Code string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown budget class %q", e.Code)
}

// Registry is an immutable lookup of class and cover-sheet mappings.
// It is safe for concurrent read-only use.
type Registry struct {
	classes []ClassMapping
	byCode  map[string]int
	cover   CoverSheetMapping
}

// New validates the mappings and builds a registry.
func New(classes []ClassMapping, cover CoverSheetMapping) (*Registry, error) {
	r := &Registry{
		classes: append([]ClassMapping(nil), classes...),
		byCode:  make(map[string]int, len(classes)),
		cover:   cover,
	}

	for i, m := range r.classes {
		code := strings.ToUpper(m.ClassCode)
		if _, dup := r.byCode[code]; dup {
			return nil, fmt.Errorf("cellmap.New: duplicate class %q", code)
		}
		if m.FirstRow < 1 || m.LastRow < m.FirstRow {
			return nil, fmt.Errorf("cellmap.New: class %s: invalid row range %d-%d", code, m.FirstRow, m.LastRow)
		}
		if m.Columns.Number == "" || m.Columns.Description == "" {
			return nil, fmt.Errorf("cellmap.New: class %s: number and description columns are required", code)
		}
		for _, ref := range m.SummaryCells() {
			if _, err := sheet.ParseCell(ref); err != nil {
				return nil, fmt.Errorf("cellmap.New: class %s: %w", code, err)
			}
		}
		for _, letters := range m.columnLetters() {
			if _, err := sheet.ColumnNumber(letters); err != nil {
				return nil, fmt.Errorf("cellmap.New: class %s: %w", code, err)
			}
		}
		r.byCode[code] = i
	}

	for i := range r.classes {
		for j := i + 1; j < len(r.classes); j++ {
			a, b := r.classes[i], r.classes[j]
			if a.LineItemRange().Overlaps(b.LineItemRange()) {
				return nil, fmt.Errorf("cellmap.New: classes %s and %s overlap", a.ClassCode, b.ClassCode)
			}
		}
	}

	if err := cover.validate(); err != nil {
		return nil, fmt.Errorf("cellmap.New: %w", err)
	}

	return r, nil
}

var defaultRegistry = mustNew(aicpClasses, aicpCoverSheet)

func mustNew(classes []ClassMapping, cover CoverSheetMapping) *Registry {
	r, err := New(classes, cover)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry for the standard AICP template (classes A-P).
func Default() *Registry {
	return defaultRegistry
}

// MappingFor returns the mapping of a class code, case-insensitively.
func (r *Registry) MappingFor(code string) (ClassMapping, error) {
	i, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return ClassMapping{}, &UnknownClassError{Code: code}
	}
	return r.classes[i], nil
}

// Classes returns the class mappings in template order.
func (r *Registry) Classes() []ClassMapping {
	return append([]ClassMapping(nil), r.classes...)
}

// CoverSheet returns the cover-sheet mapping.
func (r *Registry) CoverSheet() CoverSheetMapping {
	return r.cover
}

// Ranges lists every range a source must fetch to process a full budget.
func (r *Registry) Ranges() []sheet.Range {
	seen := make(map[string]bool)
	var out []sheet.Range
	add := func(rg sheet.Range) {
		key := rg.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, rg)
	}

	for _, ref := range r.cover.Cells() {
		if c, err := sheet.ParseCell(ref); err == nil {
			add(sheet.Range{Start: c, End: c})
		}
	}
	for _, m := range r.classes {
		for _, ref := range m.SummaryCells() {
			if c, err := sheet.ParseCell(ref); err == nil {
				add(sheet.Range{Start: c, End: c})
			}
		}
		add(m.LineItemRange())
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Col != out[j].Start.Col {
			return out[i].Start.Col < out[j].Start.Col
		}
		return out[i].Start.Row < out[j].Start.Row
	})
	return out
}
