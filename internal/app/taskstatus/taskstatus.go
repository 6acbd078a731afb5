package taskstatus

import (
	"context"
	"fmt"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/storage"
)

// ServiceConfig is the configuration for the task status service.
type ServiceConfig struct {
	TaskRepository     storage.TaskRepository
	TaskItemRepository storage.TaskItemRepository
	Logger             log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskRepository == nil {
		return fmt.Errorf("task repository is required")
	}

	if c.TaskItemRepository == nil {
		return fmt.Errorf("task item repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service gets the status of a task.
type Service struct {
	taskRepo storage.TaskRepository
	itemRepo storage.TaskItemRepository
	logger   log.Logger
}

// NewService creates a new task status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		taskRepo: cfg.TaskRepository,
		itemRepo: cfg.TaskItemRepository,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the task status request parameters.
type Request struct {
	TaskID string
}

// Response is the task with its item results.
type Response struct {
	Task  model.Task
	Items []model.TaskItemResult
}

// Run returns the task and its item results.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	s.logger.Debugf("getting task status: %s", req.TaskID)

	task, err := s.taskRepo.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	items, err := s.itemRepo.ListTaskItems(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("could not list task items: %w", err)
	}

	return &Response{Task: *task, Items: items}, nil
}
