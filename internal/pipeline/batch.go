package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/oonisim/ml-credit-risk/internal/table"
	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// Input is one independent table for RunAll, e.g. a training or a scoring set
type Input struct {
	Name  string
	Table *table.Table
	Roles transform.Roles
}

// RunAll runs p over every input concurrently. Results are returned in input order.
// The first failure cancels the remaining runs and is returned with the input name.
func RunAll(ctx context.Context, p *Pipeline, inputs ...Input) ([]*Result, error) {
	results := make([]*Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := p.Run(ctx, in.Table, in.Roles)
			if err != nil {
				return fmt.Errorf("input %q: %w", in.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
