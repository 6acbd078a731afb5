package model

import (
	"fmt"
	"time"
)

// TaskAction is the action every item of a task applies on its resource.
type TaskAction string

const (
	TaskActionCreate TaskAction = "create"
	TaskActionUpdate TaskAction = "update"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending          TaskStatus = "pending"
	TaskStatusInProgress       TaskStatus = "inProgress"
	TaskStatusSuccess          TaskStatus = "success"
	TaskStatusDoneWithFailures TaskStatus = "doneWithFailures"
)

// IsTerminal returns true when the status can only be reached once all the task batches completed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusDoneWithFailures
}

// TaskItemStatus is the outcome of a single work item.
type TaskItemStatus string

const (
	TaskItemStatusSuccess TaskItemStatus = "success"
	TaskItemStatusFailure TaskItemStatus = "failure"
)

// SecurityContext is the identity on behalf of which the items are processed.
type SecurityContext struct {
	Email      string            `json:"email"`
	GroupID    string            `json:"groupId"`
	GroupRoles map[string]string `json:"groupRoles,omitempty"`
}

// Task is the logical unit of work that spans one or more batches.
type Task struct {
	ID               string
	Kind             ResourceKind
	Action           TaskAction
	Status           TaskStatus
	BatchesTotal     int
	BatchesCompleted int
	ItemsTotal       int
	ItemsSucceeded   int
	ItemsFailed      int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllBatchesCompleted returns true when every batch of the task reported its progress.
func (t Task) AllBatchesCompleted() bool {
	return t.BatchesCompleted >= t.BatchesTotal
}

// WorkItem is one unit of create or update work within a batch.
//
// The concrete types are CreateItem, UpdateItem, UntypedItem and InvalidItem, the batch
// action decides which one is expected.
type WorkItem interface {
	ItemName() string
}

// CreateItem is the payload of a create work item.
type CreateItem struct {
	ParentID string
	Fields   ResourceFields
}

func (c CreateItem) ItemName() string { return c.Fields.Name }

// UpdateItem is the payload of an update work item.
type UpdateItem struct {
	ID     string
	Fields ResourceFields
}

func (u UpdateItem) ItemName() string { return u.Fields.Name }

// UntypedItem is an item of a batch whose action is not known, it can't be dispatched.
type UntypedItem struct {
	Fields ResourceFields
}

func (u UntypedItem) ItemName() string { return u.Fields.Name }

// InvalidItem is an item that could not be decoded, it fails with Err when dispatched.
type InvalidItem struct {
	Name string
	Err  error
}

func (i InvalidItem) ItemName() string { return i.Name }

// TaskBatch is one message worth of work items sharing a task and action.
type TaskBatch struct {
	TaskID          string
	Kind            ResourceKind
	Action          TaskAction
	SecurityContext SecurityContext
	Items           []WorkItem
}

// TaskItemResult is the outcome of processing a single work item.
type TaskItemResult struct {
	Name          string
	TaskID        string
	Status        TaskItemStatus
	StatusMessage string
	ResourceID    string
}

// TaskBatchProgress is the aggregated outcome of one batch.
type TaskBatchProgress struct {
	TaskID         string
	TotalItems     int
	ItemsSucceeded int
	ItemsFailed    int
}

// Validate checks the counters of the progress are consistent.
func (p TaskBatchProgress) Validate() error {
	if p.TaskID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}

	if p.TotalItems < 0 || p.ItemsSucceeded < 0 || p.ItemsFailed < 0 {
		return fmt.Errorf("counters can't be negative: %w", ErrNotValid)
	}

	if p.ItemsSucceeded+p.ItemsFailed != p.TotalItems {
		return fmt.Errorf("succeeded (%d) and failed (%d) items don't add up to total (%d): %w", p.ItemsSucceeded, p.ItemsFailed, p.TotalItems, ErrNotValid)
	}

	return nil
}
