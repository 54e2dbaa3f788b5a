package breakeven

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Branch is one named set of assumptions in a batch recompute.
type Branch struct {
	Name   string `json:"name" yaml:"name"`
	Inputs Inputs `json:"inputs" yaml:"inputs"`
}

// BranchResult is the outcome for a single branch. Exactly one of Result and
// Err is set.
type BranchResult struct {
	Branch string  `json:"branch"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// ComputeAll recomputes every branch concurrently, at most concurrency at a
// time. A failing branch never aborts the others; its error is kept on its
// BranchResult. Results are returned in input order. Only context
// cancellation is reported as a top-level error.
func ComputeAll(ctx context.Context, branches []Branch, concurrency int) ([]BranchResult, error) {
	results := make([]BranchResult, len(branches))
	if len(branches) == 0 {
		return results, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, b := range branches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Compute(b.Inputs)
			results[i] = BranchResult{Branch: b.Name, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "breakeven: batch cancelled")
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	zap.L().Debug("breakeven: batch complete",
		zap.Int("branches", len(branches)),
		zap.Int("failed", failed),
		zap.Int("concurrency", concurrency),
	)

	return results, nil
}
