package batch

import (
	"context"
	"fmt"

	"github.com/slok/geotask/internal/executor"
	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/storage"
)

// Dispatcher knows how to run a single work item.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch model.TaskBatch, item model.WorkItem) model.TaskItemResult
}

// DispatcherFunc is a helper to use functions as dispatchers.
type DispatcherFunc func(ctx context.Context, batch model.TaskBatch, item model.WorkItem) model.TaskItemResult

func (f DispatcherFunc) Dispatch(ctx context.Context, batch model.TaskBatch, item model.WorkItem) model.TaskItemResult {
	return f(ctx, batch, item)
}

const defaultMaxConcurrency = 10

// ProcessorConfig is the configuration for the batch processor.
type ProcessorConfig struct {
	Dispatcher     Dispatcher
	ItemRepository storage.TaskItemRepository
	// MaxConcurrency is the maximum number of items dispatched at the same time, by default 10.
	MaxConcurrency int
	Logger         log.Logger
}

func (c *ProcessorConfig) defaults() error {
	if c.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}

	if c.ItemRepository == nil {
		return fmt.Errorf("item repository is required")
	}

	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.BatchProcessor"})

	return nil
}

// Processor dispatches all the items of a batch and stores their results.
type Processor struct {
	dispatcher Dispatcher
	itemRepo   storage.TaskItemRepository
	executor   *executor.Executor
	logger     log.Logger
}

// NewProcessor creates a new batch processor.
func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	exec, err := executor.NewExecutor(cfg.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Processor{
		dispatcher: cfg.Dispatcher,
		itemRepo:   cfg.ItemRepository,
		executor:   exec,
		logger:     cfg.Logger,
	}, nil
}

// Process dispatches every item of the batch, stores all the results at once and returns
// the batch progress. Item failures are part of the progress, only storage and internal
// errors are returned.
func (p *Processor) Process(ctx context.Context, batch model.TaskBatch) (*model.TaskBatchProgress, error) {
	logger := p.logger.WithCtxValues(ctx).WithValues(log.Kv{"task-id": batch.TaskID})
	logger.Debugf("processing %d %s items", len(batch.Items), batch.Action)

	units := make([]executor.Unit[model.TaskItemResult], 0, len(batch.Items))
	for _, item := range batch.Items {
		units = append(units, func(ctx context.Context) model.TaskItemResult {
			return p.dispatcher.Dispatch(ctx, batch, item)
		})
	}
	results := executor.Run(ctx, p.executor, units)

	progress, err := summarize(batch, results)
	if err != nil {
		return nil, err
	}

	if err := p.itemRepo.CreateTaskItems(ctx, results); err != nil {
		return nil, fmt.Errorf("could not store task items: %w", err)
	}

	logger.Debugf("processed batch: %d succeeded, %d failed", progress.ItemsSucceeded, progress.ItemsFailed)
	return progress, nil
}

// summarize folds the results into the batch progress.
func summarize(batch model.TaskBatch, results []model.TaskItemResult) (*model.TaskBatchProgress, error) {
	if len(results) != len(batch.Items) {
		return nil, fmt.Errorf("got %d results for %d items: %w", len(results), len(batch.Items), model.ErrInternal)
	}

	progress := &model.TaskBatchProgress{
		TaskID:     batch.TaskID,
		TotalItems: len(batch.Items),
	}
	for i, r := range results {
		switch r.Status {
		case model.TaskItemStatusSuccess:
			progress.ItemsSucceeded++
		case model.TaskItemStatusFailure:
			progress.ItemsFailed++
		default:
			return nil, fmt.Errorf("item %d (%q) has no final status: %w", i, r.Name, model.ErrInternal)
		}
	}

	if err := progress.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch progress: %w: %w", err, model.ErrInternal)
	}

	return progress, nil
}
