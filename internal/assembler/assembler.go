// Package assembler builds the canonical processed-budget document and
// flattens it into warehouse rows. It only reshapes: no value is computed or
// checked again here.
package assembler

import (
	"strings"
	"time"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// Input is everything a processing run produced.
type Input struct {
	BudgetID string
	Source   sheet.Locator

	CoverSheet budget.CoverSheet
	LineItems  []budget.LineItem
	Summaries  []budget.ClassSummary

	ProcessedClasses []string
	SkippedClasses   []string

	// Messages is the complete message list of the run.
	Messages []budget.ValidationMessage
	Version  versioning.Resolution

	UploadTimestamp time.Time
	ProcessedAt     time.Time
}

// Assembler builds documents and row projections.
type Assembler struct{}

// New creates an Assembler.
func New() *Assembler {
	return &Assembler{}
}

// ProjectID derives the project key from the spreadsheet title: the part
// before the first underscore, "ACME0324SPOT_Estimate" giving "ACME0324SPOT".
// Untitled spreadsheets fall back to their id.
func ProjectID(loc sheet.Locator) string {
	title := strings.TrimSpace(loc.SpreadsheetTitle)
	if title == "" {
		return loc.SpreadsheetID
	}
	prefix, _, _ := strings.Cut(title, "_")
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		return loc.SpreadsheetID
	}
	return prefix
}

// Assemble merges the run's outputs into the canonical document.
func (a *Assembler) Assemble(in Input) *budget.ProcessedBudget {
	v := in.Version.Version

	lineItems := in.LineItems
	if lineItems == nil {
		lineItems = []budget.LineItem{}
	}
	summaries := in.Summaries
	if summaries == nil {
		summaries = []budget.ClassSummary{}
	}
	messages := in.Messages
	if messages == nil {
		messages = []budget.ValidationMessage{}
	}

	return &budget.ProcessedBudget{
		BudgetID:           in.BudgetID,
		ProjectID:          ProjectID(in.Source),
		ValidationStatus:   budget.Rollup(messages),
		CoverSheet:         in.CoverSheet,
		LineItems:          lineItems,
		ClassSummaries:     summaries,
		ValidationMessages: messages,
		Metadata: budget.Metadata{
			UploadTimestamp: in.UploadTimestamp,
			ProcessedAt:     in.ProcessedAt,
			Version: budget.VersionInfo{
				Major:             v.Major,
				Minor:             v.Minor,
				Patch:             v.Patch,
				Label:             v.Label(),
				VersionID:         v.VersionID,
				PreviousVersionID: v.PreviousVersionID,
				ContentHash:       v.ContentHash,
			},
			VersionStatus: in.Version.Status,
			Source:        in.Source,
			ProcessingSummary: budget.ProcessingSummary{
				TotalLineItems:   len(lineItems),
				ProcessedClasses: nonNil(in.ProcessedClasses),
				SkippedClasses:   nonNil(in.SkippedClasses),
				ValidationIssues: budget.CountBySeverity(messages),
			},
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
