package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/logger"
)

// BatchResult is the outcome of one sheet of a batch.
type BatchResult struct {
	Request     Request
	Budget      *budget.ProcessedBudget
	ArtifactURI string
	Err         error
}

// RunBatch processes reqs with at most concurrency sheets in flight. A failing
// sheet is reported in its result and does not cancel the others. Results are
// in request order.
func RunBatch(ctx context.Context, p *Pipeline, reqs []Request, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			state, err := p.Run(ctx, req)
			results[i] = BatchResult{Request: req, Err: err}
			if state != nil {
				results[i].Budget = state.Budget
				results[i].ArtifactURI = state.ArtifactURI
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("sheets", len(reqs)).
		Int("failed", failed).
		Msg("Batch finished")

	return results
}
