package gate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"atsforge/internal/types"
)

// DefaultBatchWorkers bounds the batch worker pool when no limit is given
const DefaultBatchWorkers = 4

// BatchResult pairs one target description with its terminal outcome
type BatchResult struct {
	Index   int               `json:"index"`
	Outcome types.GateOutcome `json:"outcome"`
}

// RunBatch scores independent target descriptions on a bounded worker pool.
// Documents are independent, so this is a plain fan-out; results keep input
// order. A cancelled context stops scheduling new documents, and outcomes
// computed before cancellation are returned alongside the context error.
func (r *Runner) RunBatch(ctx context.Context, prof *types.CandidateProfile, targets []string, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	results := make([]BatchResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = BatchResult{Index: i, Outcome: r.Run(gctx, prof, target)}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
