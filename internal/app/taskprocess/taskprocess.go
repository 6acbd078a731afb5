package taskprocess

import (
	"context"
	"fmt"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/storage"
)

// BatchProcessor knows how to process the items of a batch.
type BatchProcessor interface {
	Process(ctx context.Context, batch model.TaskBatch) (*model.TaskBatchProgress, error)
}

// ServiceConfig is the configuration for the task process service.
type ServiceConfig struct {
	Processor  BatchProcessor
	Repository storage.TaskRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Processor == nil {
		return fmt.Errorf("processor is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskProcess"})

	return nil
}

// Service processes a task batch and drives the status of its task.
type Service struct {
	processor BatchProcessor
	repo      storage.TaskRepository
	logger    log.Logger
}

// NewService creates a new task process service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		processor: cfg.Processor,
		repo:      cfg.Repository,
		logger:    cfg.Logger,
	}, nil
}

// Run processes the batch and updates the task:
//
//  1. The task is set in progress.
//  2. The batch items are processed and stored.
//  3. The batch progress is accumulated on the task.
//  4. The task is finished, this only takes effect when all the task batches have completed.
//
// Any storage error is returned and nothing else is updated after it.
func (s *Service) Run(ctx context.Context, batch model.TaskBatch) error {
	logger := s.logger.WithCtxValues(ctx).WithValues(log.Kv{"task-id": batch.TaskID, "kind": batch.Kind, "action": batch.Action})
	logger.Debugf("processing batch of %d items", len(batch.Items))

	if _, err := s.repo.UpdateTaskStatus(ctx, batch.TaskID, model.TaskStatusInProgress); err != nil {
		return fmt.Errorf("could not set task in progress: %w", err)
	}

	progress, err := s.processor.Process(ctx, batch)
	if err != nil {
		return fmt.Errorf("could not process batch: %w", err)
	}

	task, err := s.repo.UpdateTaskProgress(ctx, *progress)
	if err != nil {
		return fmt.Errorf("could not update task progress: %w", err)
	}

	status := model.TaskStatusSuccess
	if task.ItemsFailed > 0 {
		status = model.TaskStatusDoneWithFailures
	}

	applied, err := s.repo.UpdateTaskStatus(ctx, batch.TaskID, status)
	if err != nil {
		return fmt.Errorf("could not finish task: %w", err)
	}
	if !applied {
		logger.Debugf("task has %d/%d batches completed, waiting for the rest", task.BatchesCompleted, task.BatchesTotal)
		return nil
	}

	logger.Infof("task finished with status %s (%d succeeded, %d failed)", status, task.ItemsSucceeded, task.ItemsFailed)
	return nil
}
