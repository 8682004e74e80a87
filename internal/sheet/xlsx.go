package sheet

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// WorkbookSource reads a budget from a local .xlsx export.
type WorkbookSource struct {
	path string
}

// NewWorkbookSource returns a Source over the workbook at path.
func NewWorkbookSource(path string) *WorkbookSource {
	return &WorkbookSource{path: path}
}

// Fetch implements Source. An empty spreadsheetID defaults to the file name
// without extension.
func (s *WorkbookSource) Fetch(ctx context.Context, spreadsheetID, sheetName string, ranges []Range) (*Snapshot, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("WorkbookSource.Fetch: opening %s: %w", s.path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, fmt.Errorf("WorkbookSource.Fetch: sheet index: %w", err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("WorkbookSource.Fetch: %q in %s: %w", sheetName, s.path, ErrSheetNotFound)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("WorkbookSource.Fetch: reading rows: %w", err)
	}

	grid := NewGrid()
	for _, r := range ranges {
		for row := r.Start.Row; row <= r.End.Row && row <= len(rows); row++ {
			cols := rows[row-1]
			for col := r.Start.Col; col <= r.End.Col && col <= len(cols); col++ {
				grid.Set(Cell{Row: row, Col: col}, cols[col-1])
			}
		}
	}

	title := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	if spreadsheetID == "" {
		spreadsheetID = title
	}

	return &Snapshot{
		Locator: Locator{
			SpreadsheetID:    spreadsheetID,
			SpreadsheetTitle: title,
			SheetName:        sheetName,
			SheetGID:         int64(idx),
		},
		Grid:      grid,
		FetchedAt: time.Now().UTC(),
	}, nil
}
