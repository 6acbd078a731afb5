package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger  log.Logger
	TimeNow func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Repository is an in-memory implementation of the storage repositories.
type Repository struct {
	tasks     map[string]model.Task
	items     []model.TaskItemResult
	resources map[string]model.Resource
	mu        sync.RWMutex
	logger    log.Logger
	timeNow   func() time.Time
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		tasks:     make(map[string]model.Task),
		resources: make(map[string]model.Resource),
		logger:    cfg.Logger,
		timeNow:   cfg.TimeNow,
	}, nil
}

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
	}

	r.tasks[t.ID] = t
	r.logger.Debugf("Created task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	return &t, nil
}

// UpdateTaskStatus sets the task status, terminal statuses are only set when all the batches completed
// and success is only set when no item failed.
func (r *Repository) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return false, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	if status.IsTerminal() && !t.AllBatchesCompleted() {
		return false, nil
	}
	if status == model.TaskStatusSuccess && t.ItemsFailed > 0 {
		return false, nil
	}

	t.Status = status
	t.UpdatedAt = r.timeNow().UTC()
	r.tasks[taskID] = t

	r.logger.Debugf("Updated task %s status: %s", taskID, status)
	return true, nil
}

// UpdateTaskProgress accumulates the batch progress on the task.
func (r *Repository) UpdateTaskProgress(ctx context.Context, p model.TaskBatchProgress) (*model.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[p.TaskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", p.TaskID, model.ErrNotFound)
	}

	t.BatchesCompleted++
	t.ItemsTotal += p.TotalItems
	t.ItemsSucceeded += p.ItemsSucceeded
	t.ItemsFailed += p.ItemsFailed
	t.UpdatedAt = r.timeNow().UTC()
	r.tasks[p.TaskID] = t

	return &t, nil
}

// CreateTaskItems stores the item results.
func (r *Repository) CreateTaskItems(ctx context.Context, items []model.TaskItemResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate everything before storing anything.
	for _, it := range items {
		if _, ok := r.tasks[it.TaskID]; !ok {
			return fmt.Errorf("task %s: %w", it.TaskID, model.ErrNotFound)
		}
	}

	r.items = append(r.items, items...)

	r.logger.Debugf("Stored %d task items", len(items))
	return nil
}

// ListTaskItems returns the item results of a task in storing order.
func (r *Repository) ListTaskItems(ctx context.Context, taskID string) ([]model.TaskItemResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []model.TaskItemResult{}
	for _, it := range r.items {
		if it.TaskID == taskID {
			items = append(items, it)
		}
	}

	return items, nil
}

// CreateResource creates a new resource.
func (r *Repository) CreateResource(ctx context.Context, res model.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[res.ID]; ok {
		return fmt.Errorf("resource with id %s: %w", res.ID, model.ErrAlreadyExists)
	}

	r.resources[res.ID] = res
	return nil
}

// GetResource retrieves a resource of a kind by ID.
func (r *Repository) GetResource(ctx context.Context, kind model.ResourceKind, id string) (*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok || res.Kind != kind {
		return nil, fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}

	return &res, nil
}

// UpdateResource replaces an existing resource.
func (r *Repository) UpdateResource(ctx context.Context, res model.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.resources[res.ID]
	if !ok || current.Kind != res.Kind {
		return fmt.Errorf("%s %s: %w", res.Kind, res.ID, model.ErrNotFound)
	}

	r.resources[res.ID] = res
	return nil
}
