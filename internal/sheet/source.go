package sheet

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned when the requested sheet name does not exist
// in the spreadsheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Source supplies raw cell values for the requested ranges of one sheet.
// Implementations own all I/O, batching and retry; the returned grid is
// already fully materialised.
type Source interface {
	Fetch(ctx context.Context, spreadsheetID, sheetName string, ranges []Range) (*Snapshot, error)
}
