// Package executor runs units of work with a cap on how many are in flight at the same time.
package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/slok/geotask/internal/model"
)

// Unit is a unit of work. Units can't fail, the caller is responsible of converting
// any failure into the returned value.
type Unit[T any] func(ctx context.Context) T

// Executor runs units with bounded concurrency.
type Executor struct {
	maxConcurrency int
}

// NewExecutor returns a new executor that will run at most maxConcurrency units at the same time.
func NewExecutor(maxConcurrency int) (*Executor, error) {
	if maxConcurrency <= 0 {
		return nil, fmt.Errorf("max concurrency must be positive, got %d: %w", maxConcurrency, model.ErrNotValid)
	}

	return &Executor{maxConcurrency: maxConcurrency}, nil
}

// MaxConcurrency returns the concurrency cap of the executor.
func (e *Executor) MaxConcurrency() int { return e.maxConcurrency }

// Run executes all the units and waits for them to finish. The returned results are in
// the same order as the units, regardless of the completion order.
//
// Units are not cancelled by the executor, ctx is only handed to them.
func Run[T any](ctx context.Context, e *Executor, units []Unit[T]) []T {
	results := make([]T, len(units))
	if len(units) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)
	for i, unit := range units {
		// Each unit writes only on its own slot.
		g.Go(func() error {
			results[i] = unit(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
