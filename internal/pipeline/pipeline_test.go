package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bq "github.com/dvloznov/budget-sync/internal/bigquery"
	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/cellmap"
	"github.com/dvloznov/budget-sync/internal/gcsuploader"
	"github.com/dvloznov/budget-sync/internal/pipeline"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

var t0 = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

// fakeSource serves the same cells for every sheet name.
type fakeSource struct {
	mu    sync.Mutex
	cells map[string]string
	err   error
	calls int
}

func (s *fakeSource) Fetch(ctx context.Context, spreadsheetID, sheetName string, ranges []sheet.Range) (*sheet.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	g := sheet.NewGrid()
	for ref, v := range s.cells {
		if err := g.SetA1(ref, v); err != nil {
			return nil, err
		}
	}
	return &sheet.Snapshot{
		Locator: sheet.Locator{
			SpreadsheetID:    spreadsheetID,
			SpreadsheetTitle: "ACME0324SPOT_Estimate",
			SheetName:        sheetName,
		},
		Grid:      g,
		FetchedAt: t0,
	}, nil
}

func (s *fakeSource) set(ref, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[ref] = v
}

// fakeSink records every write.
type fakeSink struct {
	mu          sync.Mutex
	budgets     []*bq.BudgetRow
	details     []*bq.BudgetDetailRow
	validations []*bq.BudgetValidationRow
	projects    []*bq.ProjectRow
	failDetails error
}

func (s *fakeSink) InsertBudget(ctx context.Context, row *bq.BudgetRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, row)
	return nil
}

func (s *fakeSink) InsertBudgetDetails(ctx context.Context, rows []*bq.BudgetDetailRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDetails != nil {
		return s.failDetails
	}
	s.details = append(s.details, rows...)
	return nil
}

func (s *fakeSink) InsertValidations(ctx context.Context, rows []*bq.BudgetValidationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations = append(s.validations, rows...)
	return nil
}

func (s *fakeSink) UpsertProject(ctx context.Context, row *bq.ProjectRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, row)
	return nil
}

// budgetCells is a complete cover sheet plus two consistent Class A items.
func budgetCells() map[string]string {
	return map[string]string{
		"C5": "ACME Spot", "C6": "Northlight Films", "H4": "3/15/2024",
		"G22": "$1,000.00", "G23": "$1,000.00", "G35": "$2,000.00", "G47": "$2,000.00",

		"L1": "A", "M1": "PRE-PRODUCTION & WRAP CREW",
		"L4": "1", "M4": "Producer", "N4": "5", "O4": "$200.00", "P4": "$1,000.00",
		"L5": "2", "M5": "Coordinator", "N5": "5", "O5": "$200.00", "P5": "$1,000.00",
		"P53": "$2,000.00",
	}
}

// classesAB restricts the template to classes A and B.
func classesAB(t *testing.T) *cellmap.Registry {
	t.Helper()
	a, err := cellmap.Default().MappingFor("A")
	require.NoError(t, err)
	b, err := cellmap.Default().MappingFor("B")
	require.NoError(t, err)
	r, err := cellmap.New([]cellmap.ClassMapping{a, b}, cellmap.Default().CoverSheet())
	require.NoError(t, err)
	return r
}

func sequentialIDs() pipeline.IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("b%d", n.Add(1))
	}
}

func fixedClock() time.Time { return t0 }

func newPipeline(t *testing.T, deps pipeline.Dependencies) *pipeline.Pipeline {
	t.Helper()
	if deps.Versions == nil {
		deps.Versions = versioning.NewEngine(versioning.NewMemoryStore())
	}
	if deps.NewID == nil {
		deps.NewID = sequentialIDs()
	}
	if deps.Now == nil {
		deps.Now = fixedClock
	}
	p, err := pipeline.NewBudgetPipeline(deps)
	require.NoError(t, err)
	return p
}

var estimate = pipeline.Request{SpreadsheetID: "S1", SheetName: "Estimate"}

func TestBudgetPipeline_BlankClassDoesNotAbortRun(t *testing.T) {
	src := &fakeSource{cells: budgetCells()}
	p := newPipeline(t, pipeline.Dependencies{Source: src, Registry: classesAB(t)})

	state, err := p.Run(context.Background(), estimate)
	require.NoError(t, err)

	pb := state.Budget
	require.NotNil(t, pb)
	assert.Equal(t, "b1", pb.BudgetID)
	assert.Equal(t, "ACME0324SPOT", pb.ProjectID)

	require.Len(t, pb.LineItems, 2)
	for _, li := range pb.LineItems {
		assert.Equal(t, "A", li.ClassCode)
		assert.Equal(t, "b1", li.BudgetID)
		assert.Equal(t, budget.StatusValid, li.ValidationStatus)
		assert.Equal(t, "1000", li.CalculatedEstimateTotal.Decimal.String())
	}

	require.Len(t, pb.ValidationMessages, 1)
	msg := pb.ValidationMessages[0]
	assert.Equal(t, "B", msg.ClassCode)
	assert.Equal(t, budget.SeverityError, msg.Severity)
	assert.Equal(t, budget.StatusError, pb.ValidationStatus)

	summary := pb.Metadata.ProcessingSummary
	assert.Equal(t, []string{"A"}, summary.ProcessedClasses)
	assert.Equal(t, []string{"B"}, summary.SkippedClasses)
	assert.Equal(t, "1.0.0", pb.Metadata.Version.Label)
	assert.Equal(t, budget.VersionDraft, pb.Metadata.VersionStatus)
	assert.Equal(t, t0, pb.Metadata.UploadTimestamp)
	assert.NotEmpty(t, state.ContentHash)
}

func TestBudgetPipeline_VersionLifecycle(t *testing.T) {
	src := &fakeSource{cells: budgetCells()}
	p := newPipeline(t, pipeline.Dependencies{Source: src, Registry: classesAB(t)})
	ctx := context.Background()

	run := func(req pipeline.Request) *budget.ProcessedBudget {
		state, err := p.Run(ctx, req)
		require.NoError(t, err)
		return state.Budget
	}

	first := run(estimate)
	assert.Equal(t, "1.0.0", first.Metadata.Version.Label)

	src.set("O4", "$250.00")
	src.set("P4", "$1,250.00")
	revised := run(estimate)
	assert.Equal(t, "1.1.0", revised.Metadata.Version.Label)
	assert.Equal(t, budget.VersionRevised, revised.Metadata.VersionStatus)
	assert.Equal(t, first.Metadata.Version.VersionID, revised.Metadata.Version.PreviousVersionID)

	again := run(estimate)
	assert.Equal(t, "1.1.1", again.Metadata.Version.Label)
	assert.Equal(t, revised.Metadata.Version.ContentHash, again.Metadata.Version.ContentHash)
	assert.NotEqual(t, revised.BudgetID, again.BudgetID)

	renamed := run(pipeline.Request{SpreadsheetID: "S1", SheetName: "Estimate-v2"})
	assert.Equal(t, "2.0.0", renamed.Metadata.Version.Label)
	assert.Equal(t, budget.VersionNewMajor, renamed.Metadata.VersionStatus)
}

func TestBudgetPipeline_StructuralFailures(t *testing.T) {
	tests := []struct {
		name      string
		req       pipeline.Request
		source    *fakeSource
		wantErr   error
		wantCalls int
	}{
		{
			name:      "missing sheet name",
			req:       pipeline.Request{SpreadsheetID: "S1"},
			source:    &fakeSource{cells: budgetCells()},
			wantErr:   budget.ErrMissingIdentity,
			wantCalls: 0,
		},
		{
			name:      "empty grid",
			req:       estimate,
			source:    &fakeSource{cells: map[string]string{}},
			wantErr:   budget.ErrUnreadableSheet,
			wantCalls: 1,
		},
		{
			name:      "sheet not found",
			req:       estimate,
			source:    &fakeSource{err: fmt.Errorf("describe: %w", sheet.ErrSheetNotFound)},
			wantErr:   budget.ErrUnreadableSheet,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, pipeline.Dependencies{Source: tt.source})

			state, err := p.Run(context.Background(), tt.req)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, state.Budget)
			assert.Equal(t, tt.wantCalls, tt.source.calls)
		})
	}
}

func TestBudgetPipeline_SourceErrorIsReturned(t *testing.T) {
	boom := errors.New("quota exhausted")
	p := newPipeline(t, pipeline.Dependencies{Source: &fakeSource{err: boom}})

	_, err := p.Run(context.Background(), estimate)

	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, budget.ErrUnreadableSheet)
}

func TestBudgetPipeline_ArchiveAndSink(t *testing.T) {
	root := t.TempDir()
	store, err := gcsuploader.NewLocalArtifactStore(root)
	require.NoError(t, err)
	sink := &fakeSink{}

	p := newPipeline(t, pipeline.Dependencies{
		Source:    &fakeSource{cells: budgetCells()},
		Registry:  classesAB(t),
		Sink:      sink,
		Artifacts: store,
	})

	state, err := p.Run(context.Background(), estimate)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "budgets", "ACME0324SPOT", "b1.json"))
	assert.Contains(t, state.ArtifactURI, "b1.json")

	require.Len(t, sink.budgets, 1)
	assert.Equal(t, "b1", sink.budgets[0].BudgetID)
	assert.Equal(t, "1.0.0", sink.budgets[0].VersionLabel)

	// Two line items and one subtotal row for class A.
	require.Len(t, sink.details, 3)
	assert.True(t, sink.details[2].IsSubtotal)
	for _, d := range sink.details {
		assert.Equal(t, "b1", d.BudgetID)
	}
	require.Len(t, sink.validations, 1)
	assert.Equal(t, "B", sink.validations[0].ClassCode.StringVal)
	require.Len(t, sink.projects, 1)
	assert.Equal(t, "b1", sink.projects[0].LatestBudgetID)
}

func TestBudgetPipeline_SinkFailureKeepsDocument(t *testing.T) {
	sink := &fakeSink{failDetails: errors.New("streaming insert failed")}
	p := newPipeline(t, pipeline.Dependencies{
		Source:   &fakeSource{cells: budgetCells()},
		Registry: classesAB(t),
		Sink:     sink,
	})

	state, err := p.Run(context.Background(), estimate)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SinkStep")
	require.NotNil(t, state.Budget)
	assert.Len(t, sink.budgets, 1)
	assert.Empty(t, sink.projects)
}

func TestNewBudgetPipeline_RequiresCollaborators(t *testing.T) {
	_, err := pipeline.NewBudgetPipeline(pipeline.Dependencies{})
	assert.Error(t, err)

	_, err = pipeline.NewBudgetPipeline(pipeline.Dependencies{Source: &fakeSource{}})
	assert.Error(t, err)
}
