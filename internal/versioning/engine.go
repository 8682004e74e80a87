// Package versioning assigns semantic versions to processed budgets. The
// version of a sheet identity moves by content hash: identical content bumps
// the patch, changed content the minor, and a new sheet name for a known
// spreadsheet the major.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/logger"
)

// versionNamespace seeds the name-based UUIDs of version records.
var versionNamespace = uuid.MustParse("6f1c7a52-3c1e-4d0b-9a0e-2f6b1d7c9e41")

// VersionID returns the stable id of one version of a sheet identity.
func VersionID(id budget.Identity, major, minor, patch int) string {
	name := fmt.Sprintf("%s\x00%s\x00%d.%d.%d", id.SpreadsheetID, id.SheetName, major, minor, patch)
	return uuid.NewSHA1(versionNamespace, []byte(name)).String()
}

// Resolution is the outcome of versioning one run.
type Resolution struct {
	Version budget.BudgetVersion
	Status  budget.VersionStatus
	// Messages holds the warning recorded when the stored history was unusable.
	Messages []budget.ValidationMessage
}

// Engine resolves versions against a Store.
type Engine struct {
	store Store
}

// NewEngine creates an Engine over store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Resolve computes and persists the version of id for content hashed as hash.
// An unreadable record of id or of a sibling sheet does not fail the run: the version falls back
// to 1.0.0, a warning is returned and the anomaly is logged.
func (e *Engine) Resolve(ctx context.Context, id budget.Identity, hash string, now time.Time) (Resolution, error) {
	if err := id.Validate(); err != nil {
		return Resolution{}, fmt.Errorf("Resolve: %w", err)
	}

	var status budget.VersionStatus
	v, err := e.store.Update(ctx, id, func(current *budget.BudgetVersion, siblings []budget.BudgetVersion) (budget.BudgetVersion, error) {
		var next budget.BudgetVersion
		next, status = Next(id, hash, now, current, siblings)
		return next, nil
	})

	var storeErr *budget.VersionStoreError
	if errors.As(err, &storeErr) {
		return e.fallback(ctx, id, hash, now, storeErr), nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("Resolve: %s: %w", id, err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("spreadsheet_id", id.SpreadsheetID).
		Str("sheet_name", id.SheetName).
		Str("version", v.Label()).
		Str("version_status", string(status)).
		Msg("Resolved budget version")

	return Resolution{Version: v, Status: status}, nil
}

func (e *Engine) fallback(ctx context.Context, id budget.Identity, hash string, now time.Time, storeErr *budget.VersionStoreError) Resolution {
	log := logger.FromContext(ctx)
	log.Error().
		Err(storeErr).
		Str("anomaly", "version_store_fallback").
		Str("spreadsheet_id", id.SpreadsheetID).
		Str("sheet_name", id.SheetName).
		Str("record_sheet_name", storeErr.SheetName).
		Msg("Version history unreadable, falling back to 1.0.0")

	v := budget.BudgetVersion{
		VersionID:     VersionID(id, 1, 0, 0),
		SpreadsheetID: id.SpreadsheetID,
		SheetName:     id.SheetName,
		Major:         1,
		ContentHash:   hash,
		FirstSeen:     now,
		LastUpdated:   now,
	}
	return Resolution{
		Version: v,
		Status:  budget.VersionRecovered,
		Messages: []budget.ValidationMessage{{
			ValidationType: budget.TypeVersion,
			Severity:       budget.SeverityWarning,
			Message:        fmt.Sprintf("Version history for %s is unreadable; versioned as first upload", id),
			FieldName:      "version",
			ExpectedValue:  "readable version record",
			ActualValue:    storeErr.Err.Error(),
		}},
	}
}

// Next is the version state machine. It is pure: the same inputs always
// produce the same version.
func Next(id budget.Identity, hash string, now time.Time, current *budget.BudgetVersion, siblings []budget.BudgetVersion) (budget.BudgetVersion, budget.VersionStatus) {
	next := budget.BudgetVersion{
		SpreadsheetID: id.SpreadsheetID,
		SheetName:     id.SheetName,
		ContentHash:   hash,
		FirstSeen:     now,
		LastUpdated:   now,
	}

	var status budget.VersionStatus
	switch {
	case current != nil:
		next.FirstSeen = current.FirstSeen
		next.PreviousVersionID = current.VersionID
		next.Major, next.Minor = current.Major, current.Minor
		if hash == current.ContentHash {
			next.Patch = current.Patch + 1
			status = budget.VersionReprocessed
		} else {
			next.Minor = current.Minor + 1
			status = budget.VersionRevised
		}

	case len(siblings) > 0:
		latest := siblings[0]
		for _, s := range siblings[1:] {
			if latest.Less(s) {
				latest = s
			}
		}
		next.Major = latest.Major + 1
		next.PreviousVersionID = latest.VersionID
		status = budget.VersionNewMajor

	default:
		next.Major = 1
		status = budget.VersionDraft
	}

	next.VersionID = VersionID(id, next.Major, next.Minor, next.Patch)
	return next, status
}
