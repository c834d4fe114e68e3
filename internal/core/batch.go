package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cornucopia/pkg/domain"
)

// DefaultBatchLimit bounds concurrent runs when RunBatch is given no limit.
const DefaultBatchLimit = 4

// BatchResult pairs a request's outcome with the error that halted it.
type BatchResult struct {
	Outcome Outcome
	Err     error
}

// RunBatch runs every request with at most limit runs in flight. Results are
// returned in request order; a halted run does not stop the others.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []domain.ExperimentRequest, opts RunOptions, limit int) []BatchResult {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	results := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			out, err := p.Run(ctx, req, opts)
			results[i] = BatchResult{Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
