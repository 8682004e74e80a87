package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/cellmap"
	"github.com/dvloznov/budget-sync/internal/logger"
	"github.com/dvloznov/budget-sync/internal/processor"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/validation"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// Request names the sheet to process.
type Request struct {
	SpreadsheetID string `json:"spreadsheet_id" toml:"spreadsheet_id"`
	SheetName     string `json:"sheet_name" toml:"sheet_name"`
}

// Identity returns the versioning key of the request.
func (r Request) Identity() budget.Identity {
	return budget.Identity{SpreadsheetID: r.SpreadsheetID, SheetName: r.SheetName}
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request         Request
	BudgetID        string
	UploadTimestamp time.Time

	Snapshot *sheet.Snapshot

	CoverSheet       budget.CoverSheet
	LineItems        []budget.LineItem
	Summaries        []budget.ClassSummary
	ProcessedClasses []string
	SkippedClasses   []string
	Messages         []budget.ValidationMessage

	ContentHash string
	Version     versioning.Resolution

	Budget      *budget.ProcessedBudget
	ArtifactURI string
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. Once a step has
// stamped the budget id, later steps log with the run's fields.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	tagged := false
	for i, step := range p.steps {
		if !tagged && state.BudgetID != "" {
			ctx = logger.WithContext(ctx, runLogger(ctx, state))
			tagged = true
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Run processes one sheet and returns the final state. The state is returned
// even on failure so callers can report how far the run got.
func (p *Pipeline) Run(ctx context.Context, req Request) (*PipelineState, error) {
	state := &PipelineState{Request: req}

	err := p.Execute(ctx, state)
	log := runLogger(ctx, state)
	if err != nil {
		log.Error().Err(err).Msg("Budget processing failed")
		return state, err
	}

	if pb := state.Budget; pb != nil {
		log.Info().
			Str("version", pb.Metadata.Version.Label).
			Str("validation_status", string(pb.ValidationStatus)).
			Msg("Processed budget")
	}
	return state, nil
}

func runLogger(ctx context.Context, state *PipelineState) zerolog.Logger {
	return logger.WithBudget(logger.FromContext(ctx), state.Request.SpreadsheetID, state.Request.SheetName, state.BudgetID)
}

// Dependencies are the collaborators of the standard budget pipeline. Sink
// and Artifacts are optional: a nil value skips that step.
type Dependencies struct {
	Source   sheet.Source
	Registry *cellmap.Registry
	Versions VersionResolver

	Sink           BudgetSink
	Artifacts      ArtifactStore
	ArtifactPrefix string

	Processing processor.Options
	Validation validation.Options

	NewID IDGenerator
	Now   Clock
}

// withDefaults fills the zero-valued optional fields.
func (d Dependencies) withDefaults() Dependencies {
	if d.Registry == nil {
		d.Registry = cellmap.Default()
	}
	if d.Processing == (processor.Options{}) {
		d.Processing = processor.DefaultOptions()
	}
	if d.Validation == (validation.Options{}) {
		d.Validation = validation.DefaultOptions()
	}
	if d.NewID == nil {
		d.NewID = NewUUID
	}
	if d.Now == nil {
		d.Now = SystemClock
	}
	if d.ArtifactPrefix == "" {
		d.ArtifactPrefix = DefaultArtifactPrefix
	}
	return d
}

// NewBudgetPipeline creates the standard pipeline: start, fetch, extract,
// validate, version, assemble, then archive and sink when configured.
func NewBudgetPipeline(deps Dependencies) (*Pipeline, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("NewBudgetPipeline: a sheet source is required")
	}
	if deps.Versions == nil {
		return nil, fmt.Errorf("NewBudgetPipeline: a version resolver is required")
	}
	d := deps.withDefaults()

	steps := []PipelineStep{
		&StartRunStep{NewID: d.NewID, Now: d.Now},
		&FetchGridStep{Source: d.Source, Registry: d.Registry},
		&ExtractStep{Registry: d.Registry, Options: d.Processing},
		&ValidateStep{Options: d.Validation},
		&VersionStep{Resolver: d.Versions, Now: d.Now},
		&AssembleStep{Now: d.Now},
	}
	if d.Artifacts != nil {
		steps = append(steps, &ArchiveStep{Store: d.Artifacts, Prefix: d.ArtifactPrefix})
	}
	if d.Sink != nil {
		steps = append(steps, &SinkStep{Sink: d.Sink})
	}
	return NewPipeline(steps...), nil
}
