package sheet

import (
	"strings"
	"time"
)

// Grid is a sparse set of raw cell values. Cells never written read as blank,
// so callers can address any coordinate without checking for presence.
// A nil *Grid behaves as an empty grid.
type Grid struct {
	cells map[Cell]string
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[Cell]string)}
}

// Set stores a raw value. Blank values are not stored.
func (g *Grid) Set(c Cell, value string) {
	if strings.TrimSpace(value) == "" {
		delete(g.cells, c)
		return
	}
	g.cells[c] = value
}

// SetA1 stores a raw value at an A1 reference.
func (g *Grid) SetA1(ref, value string) error {
	c, err := ParseCell(ref)
	if err != nil {
		return err
	}
	g.Set(c, value)
	return nil
}

// Fill writes a block of row-major values whose top-left corner is start.
func (g *Grid) Fill(start Cell, rows [][]string) {
	for i, row := range rows {
		for j, v := range row {
			g.Set(Cell{Row: start.Row + i, Col: start.Col + j}, v)
		}
	}
}

// Value returns the raw value at c, trimmed. Absent cells return "".
func (g *Grid) Value(c Cell) string {
	if g == nil {
		return ""
	}
	return strings.TrimSpace(g.cells[c])
}

// At returns the value at an A1 reference. Malformed references read as blank.
func (g *Grid) At(ref string) string {
	if ref == "" {
		return ""
	}
	c, err := ParseCell(ref)
	if err != nil {
		return ""
	}
	return g.Value(c)
}

// Blank reports whether the cell is empty or whitespace.
func (g *Grid) Blank(c Cell) bool {
	return g.Value(c) == ""
}

// BlankWithin reports whether every cell of r is blank.
func (g *Grid) BlankWithin(r Range) bool {
	if g == nil {
		return true
	}
	for c := range g.cells {
		if r.Contains(c) {
			return false
		}
	}
	return true
}

// Len returns the number of non-blank cells.
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.cells)
}

// Locator identifies where a grid was read from.
type Locator struct {
	SpreadsheetID    string `json:"spreadsheet_id"`
	SpreadsheetTitle string `json:"spreadsheet_title,omitempty"`
	SheetName        string `json:"sheet_name"`
	SheetGID         int64  `json:"sheet_gid"`
}

// Snapshot is a fetched grid together with its source locator.
type Snapshot struct {
	Locator   Locator
	Grid      *Grid
	FetchedAt time.Time
}
