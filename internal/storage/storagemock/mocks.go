package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/storage"
)

// MockTaskRepository is a mock of storage.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

var _ storage.TaskRepository = &MockTaskRepository{}

func (m *MockTaskRepository) CreateTask(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

func (m *MockTaskRepository) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) (bool, error) {
	args := m.Called(ctx, taskID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) UpdateTaskProgress(ctx context.Context, p model.TaskBatchProgress) (*model.Task, error) {
	args := m.Called(ctx, p)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

// MockTaskItemRepository is a mock of storage.TaskItemRepository.
type MockTaskItemRepository struct {
	mock.Mock
}

var _ storage.TaskItemRepository = &MockTaskItemRepository{}

func (m *MockTaskItemRepository) CreateTaskItems(ctx context.Context, items []model.TaskItemResult) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockTaskItemRepository) ListTaskItems(ctx context.Context, taskID string) ([]model.TaskItemResult, error) {
	args := m.Called(ctx, taskID)
	items, _ := args.Get(0).([]model.TaskItemResult)
	return items, args.Error(1)
}

// MockResourceRepository is a mock of storage.ResourceRepository.
type MockResourceRepository struct {
	mock.Mock
}

var _ storage.ResourceRepository = &MockResourceRepository{}

func (m *MockResourceRepository) CreateResource(ctx context.Context, r model.Resource) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockResourceRepository) GetResource(ctx context.Context, kind model.ResourceKind, id string) (*model.Resource, error) {
	args := m.Called(ctx, kind, id)
	r, _ := args.Get(0).(*model.Resource)
	return r, args.Error(1)
}

func (m *MockResourceRepository) UpdateResource(ctx context.Context, r model.Resource) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
