package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/pipeline"
)

// Runner processes one sheet request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.PipelineState, error)
}

// NewProcessBudgetHandler returns a JobHandler running each job through r
// and recording the outcome on the job. Missing identity and unreadable
// sheets fail the job without retries.
func NewProcessBudgetHandler(r Runner) JobHandler {
	return func(ctx context.Context, job *ProcessBudgetJob) error {
		state, err := r.Run(ctx, pipeline.Request{
			SpreadsheetID: job.SpreadsheetID,
			SheetName:     job.SheetName,
		})
		if state != nil && state.Budget != nil {
			pb := state.Budget
			job.BudgetID = pb.BudgetID
			job.Version = pb.Metadata.Version.Label
			job.ValidationStatus = string(pb.ValidationStatus)
			job.ArtifactURI = state.ArtifactURI
		}
		if err == nil {
			return nil
		}

		err = fmt.Errorf("job %s: %w", job.JobID, err)
		if errors.Is(err, budget.ErrMissingIdentity) || errors.Is(err, budget.ErrUnreadableSheet) {
			return Permanent(err)
		}
		return err
	}
}

var _ Runner = (*pipeline.Pipeline)(nil)
