package budget

import (
	"errors"
	"fmt"
)

// ErrMissingIdentity is returned when a run has no spreadsheet id or sheet name.
var ErrMissingIdentity = errors.New("missing sheet identity")

// ErrUnreadableSheet is returned when the fetched grid holds no data at all.
var ErrUnreadableSheet = errors.New("sheet is unreadable")

// ExtractionError describes a class or cover-sheet range that could not be
// read as a whole.
type ExtractionError struct {
	Scope  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction of %s failed: %s", e.Scope, e.Reason)
}

// FormatError describes a single cell that could not be parsed.
type FormatError struct {
	Field string
	Raw   string
	Kind  string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("cannot parse %q as %s", e.Raw, e.Kind)
	}
	return fmt.Sprintf("cannot parse %s %q as %s", e.Field, e.Raw, e.Kind)
}

func (e *FormatError) Unwrap() error { return e.Err }

// VersionStoreError reports an unreadable version record for a sheet identity.
type VersionStoreError struct {
	SpreadsheetID string
	SheetName     string
	Err           error
}

func (e *VersionStoreError) Error() string {
	return fmt.Sprintf("version store: %s/%s: %v", e.SpreadsheetID, e.SheetName, e.Err)
}

func (e *VersionStoreError) Unwrap() error { return e.Err }
