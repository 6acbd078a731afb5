package dispatch

import (
	"context"
	"fmt"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/resource"
)

// DispatcherConfig is the configuration for the item action dispatcher.
type DispatcherConfig struct {
	Actions resource.Actions
	Logger  log.Logger
}

func (c *DispatcherConfig) defaults() error {
	if c.Actions == nil {
		return fmt.Errorf("actions are required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Dispatcher"})

	return nil
}

// Dispatcher applies the batch action of a single work item and converts the outcome into a result.
type Dispatcher struct {
	actions resource.Actions
	logger  log.Logger
}

// NewDispatcher creates a new item action dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Dispatcher{
		actions: cfg.Actions,
		logger:  cfg.Logger,
	}, nil
}

// Dispatch runs the action of the batch on the item. It never fails, action failures
// are returned as failed results.
func (d *Dispatcher) Dispatch(ctx context.Context, batch model.TaskBatch, item model.WorkItem) model.TaskItemResult {
	result := model.TaskItemResult{
		Name:   item.ItemName(),
		TaskID: batch.TaskID,
	}

	resourceID, err := d.run(ctx, batch, item)
	if err != nil {
		d.logger.Debugf("item %q of task %s failed: %s", result.Name, batch.TaskID, err)
		result.Status = model.TaskItemStatusFailure
		result.StatusMessage = err.Error()
		return result
	}

	result.Status = model.TaskItemStatusSuccess
	result.ResourceID = resourceID
	return result
}

func (d *Dispatcher) run(ctx context.Context, batch model.TaskBatch, item model.WorkItem) (resourceID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()

	if it, ok := item.(model.InvalidItem); ok {
		return "", it.Err
	}

	var r *model.Resource
	switch batch.Action {
	case model.TaskActionCreate:
		it, ok := item.(model.CreateItem)
		if !ok {
			return "", fmt.Errorf("item is not a create item: %w", model.ErrNotValid)
		}
		r, err = d.actions.Create(ctx, batch.SecurityContext, it.ParentID, it.Fields)
	case model.TaskActionUpdate:
		it, ok := item.(model.UpdateItem)
		if !ok {
			return "", fmt.Errorf("item is not an update item: %w", model.ErrNotValid)
		}
		r, err = d.actions.Update(ctx, batch.SecurityContext, it.ID, it.Fields)
	default:
		return "", model.ErrUnknownTaskAction
	}
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", fmt.Errorf("action returned no resource: %w", model.ErrInternal)
	}

	return r.ID, nil
}
