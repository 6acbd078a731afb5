package storage

import (
	"context"

	"github.com/slok/geotask/internal/model"
)

// TaskRepository is the interface for task persistence.
type TaskRepository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// UpdateTaskStatus sets the status of a task. Terminal statuses are only applied when
	// all the task batches have completed and success only when no item has failed, otherwise
	// the write is a no-op and applied is false.
	UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) (applied bool, err error)
	// UpdateTaskProgress accumulates the batch progress on the task and marks the batch as completed.
	// It returns the task as it is after the update.
	UpdateTaskProgress(ctx context.Context, p model.TaskBatchProgress) (*model.Task, error)
}

// TaskItemRepository is the interface for task item result persistence.
type TaskItemRepository interface {
	// CreateTaskItems stores all the item results of a batch, either all of them are stored or none.
	CreateTaskItems(ctx context.Context, items []model.TaskItemResult) error
	// ListTaskItems returns the item results of a task in the order they were stored.
	ListTaskItems(ctx context.Context, taskID string) ([]model.TaskItemResult, error)
}

// ResourceRepository is the interface for geographic resource persistence.
type ResourceRepository interface {
	CreateResource(ctx context.Context, r model.Resource) error
	GetResource(ctx context.Context, kind model.ResourceKind, id string) (*model.Resource, error)
	UpdateResource(ctx context.Context, r model.Resource) error
}
