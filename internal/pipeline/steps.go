package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-sync/internal/assembler"
	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/cellmap"
	"github.com/dvloznov/budget-sync/internal/gcsuploader"
	"github.com/dvloznov/budget-sync/internal/logger"
	"github.com/dvloznov/budget-sync/internal/processor"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/validation"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// PipelineStep represents a single step in the processing pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// Step 1: StartRunStep checks the sheet identity and stamps the run.
type StartRunStep struct {
	NewID IDGenerator
	Now   Clock
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := state.Request.Identity().Validate(); err != nil {
		return fmt.Errorf("StartRunStep: %w", err)
	}
	state.BudgetID = s.NewID()
	state.UploadTimestamp = s.Now()
	return nil
}

// Step 2: FetchGridStep reads every mapped range of the sheet.
type FetchGridStep struct {
	Source   sheet.Source
	Registry *cellmap.Registry
}

func (s *FetchGridStep) Execute(ctx context.Context, state *PipelineState) error {
	req := state.Request
	snap, err := s.Source.Fetch(ctx, req.SpreadsheetID, req.SheetName, s.Registry.Ranges())
	if errors.Is(err, sheet.ErrSheetNotFound) {
		return fmt.Errorf("FetchGridStep: %w: %w", budget.ErrUnreadableSheet, err)
	}
	if err != nil {
		return fmt.Errorf("FetchGridStep: fetching %s: %w", req.Identity(), err)
	}
	if snap.Grid == nil || snap.Grid.Len() == 0 {
		return fmt.Errorf("FetchGridStep: %s: %w", req.Identity(), budget.ErrUnreadableSheet)
	}

	log := logger.FromContext(ctx)
	log.Debug().Int("cells", snap.Grid.Len()).Msg("Fetched sheet grid")

	state.Snapshot = snap
	return nil
}

// Step 3: ExtractStep runs the cover-sheet and class processors. Data
// problems become messages; nothing here fails the run.
type ExtractStep struct {
	Registry *cellmap.Registry
	Options  processor.Options
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	g := state.Snapshot.Grid

	cover := processor.NewCoverSheetProcessor(s.Options).Process(s.Registry.CoverSheet(), g)
	state.CoverSheet = cover.CoverSheet
	state.Messages = append(state.Messages, cover.Messages...)

	classes := processor.NewClassProcessor(s.Options)
	for _, m := range s.Registry.Classes() {
		res := classes.Process(state.BudgetID, m, g)
		state.Messages = append(state.Messages, res.Messages...)
		if !res.Extracted {
			state.SkippedClasses = append(state.SkippedClasses, m.ClassCode)
			continue
		}
		state.ProcessedClasses = append(state.ProcessedClasses, m.ClassCode)
		state.LineItems = append(state.LineItems, res.LineItems...)
		state.Summaries = append(state.Summaries, res.Summary)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("line_items", len(state.LineItems)).
		Strs("skipped_classes", state.SkippedClasses).
		Int("messages", len(state.Messages)).
		Msg("Extracted budget")
	return nil
}

// Step 4: ValidateStep adds the budget-wide checks.
type ValidateStep struct {
	Options validation.Options
}

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	res := validation.NewEngine(s.Options).Validate(validation.Input{
		Messages:  state.Messages,
		LineItems: state.LineItems,
		Summaries: state.Summaries,
	})
	state.Messages = res.Messages
	return nil
}

// Step 5: VersionStep hashes the content and resolves the next version.
type VersionStep struct {
	Resolver VersionResolver
	Now      Clock
}

func (s *VersionStep) Execute(ctx context.Context, state *PipelineState) error {
	hash, err := versioning.ContentHash(state.CoverSheet, state.LineItems)
	if err != nil {
		return fmt.Errorf("VersionStep: %w", err)
	}
	state.ContentHash = hash

	res, err := s.Resolver.Resolve(ctx, state.Request.Identity(), hash, s.Now())
	if err != nil {
		return fmt.Errorf("VersionStep: %w", err)
	}
	state.Version = res
	state.Messages = append(state.Messages, res.Messages...)
	return nil
}

// Step 6: AssembleStep builds the canonical document.
type AssembleStep struct {
	Now Clock
}

func (s *AssembleStep) Execute(ctx context.Context, state *PipelineState) error {
	loc := state.Snapshot.Locator
	if loc.SpreadsheetID == "" {
		loc.SpreadsheetID = state.Request.SpreadsheetID
	}
	if loc.SheetName == "" {
		loc.SheetName = state.Request.SheetName
	}

	state.Budget = assembler.New().Assemble(assembler.Input{
		BudgetID:         state.BudgetID,
		Source:           loc,
		CoverSheet:       state.CoverSheet,
		LineItems:        state.LineItems,
		Summaries:        state.Summaries,
		ProcessedClasses: state.ProcessedClasses,
		SkippedClasses:   state.SkippedClasses,
		Messages:         state.Messages,
		Version:          state.Version,
		UploadTimestamp:  state.UploadTimestamp,
		ProcessedAt:      s.Now(),
	})
	return nil
}

// Step 7: ArchiveStep writes the document as the audit artifact.
type ArchiveStep struct {
	Store  ArtifactStore
	Prefix string
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	uri, err := gcsuploader.WriteDocument(ctx, s.Store, s.Prefix, state.Budget)
	if err != nil {
		return fmt.Errorf("ArchiveStep: %w", err)
	}
	state.ArtifactURI = uri

	log := logger.FromContext(ctx)
	log.Info().Str("artifact", uri).Msg("Archived processed budget")
	return nil
}

// Step 8: SinkStep streams the row projections to the warehouse.
type SinkStep struct {
	Sink BudgetSink
}

func (s *SinkStep) Execute(ctx context.Context, state *PipelineState) error {
	rows := assembler.New().Rows(state.Budget)

	if err := s.Sink.InsertBudget(ctx, rows.Budget); err != nil {
		return fmt.Errorf("SinkStep: %w", err)
	}
	if err := s.Sink.InsertBudgetDetails(ctx, rows.Details); err != nil {
		return fmt.Errorf("SinkStep: %w", err)
	}
	if err := s.Sink.InsertValidations(ctx, rows.Validations); err != nil {
		return fmt.Errorf("SinkStep: %w", err)
	}
	if err := s.Sink.UpsertProject(ctx, rows.Project); err != nil {
		return fmt.Errorf("SinkStep: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("detail_rows", len(rows.Details)).
		Int("validation_rows", len(rows.Validations)).
		Msg("Wrote budget to warehouse")
	return nil
}
