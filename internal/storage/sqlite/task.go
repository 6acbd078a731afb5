package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/geotask/internal/model"
)

const taskColumns = `
	id, kind, action, status,
	batches_total, batches_completed,
	items_total, items_succeeded, items_failed,
	created_at, updated_at
`

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Kind, t.Action, t.Status,
		t.BatchesTotal, t.BatchesCompleted,
		t.ItemsTotal, t.ItemsSucceeded, t.ItemsFailed,
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: tasks.") {
			return fmt.Errorf("task already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return t, nil
}

// UpdateTaskStatus sets the status of a task. Terminal statuses are guarded by the
// batch counters on the same statement, so concurrent batches of the same task can't
// finish it before the last one has reported its progress, and a task with failed
// items can't be finished successfully.
func (r *Repository) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) (bool, error) {
	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`
	if status.IsTerminal() {
		query += ` AND batches_completed >= batches_total`
	}
	if status == model.TaskStatusSuccess {
		query += ` AND items_failed = 0`
	}

	result, err := r.db.ExecContext(ctx, query, status, r.timeNow().UTC().Unix(), taskID)
	if err != nil {
		return false, fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not get rows affected: %w", err)
	}

	if rows == 0 {
		exists, err := r.taskExists(ctx, taskID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
		}

		r.logger.Debugf("Task %s status %s not applied, batches still pending or items failed", taskID, status)
		return false, nil
	}

	r.logger.Debugf("Updated task %s status: %s", taskID, status)
	return true, nil
}

// UpdateTaskProgress accumulates the batch progress on the task.
func (r *Repository) UpdateTaskProgress(ctx context.Context, p model.TaskBatchProgress) (*model.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks SET
			batches_completed = batches_completed + 1,
			items_total = items_total + ?,
			items_succeeded = items_succeeded + ?,
			items_failed = items_failed + ?,
			updated_at = ?
		WHERE id = ?
		RETURNING ` + taskColumns

	t, err := scanTask(r.db.QueryRowContext(ctx, query,
		p.TotalItems, p.ItemsSucceeded, p.ItemsFailed,
		r.timeNow().UTC().Unix(), p.TaskID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", p.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not update task progress: %w", err)
	}

	r.logger.Debugf("Updated task %s progress: %d/%d batches", t.ID, t.BatchesCompleted, t.BatchesTotal)
	return t, nil
}

// CreateTaskItems stores the item results of a batch in a single transaction.
func (r *Repository) CreateTaskItems(ctx context.Context, items []model.TaskItemResult) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	insertQuery := `
		INSERT INTO task_items (id, task_id, name, status, status_message, resource_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	now := r.timeNow().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	for _, it := range items {
		id := ulid.MustNew(ulid.Timestamp(now), entropy).String()
		_, err := stmt.ExecContext(ctx, id, it.TaskID, it.Name, it.Status, it.StatusMessage, it.ResourceID, now.Unix())
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return fmt.Errorf("task %s: %w", it.TaskID, model.ErrNotFound)
			}
			return fmt.Errorf("could not insert task item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Stored %d task items", len(items))
	return nil
}

// ListTaskItems returns the item results of a task in storing order.
func (r *Repository) ListTaskItems(ctx context.Context, taskID string) ([]model.TaskItemResult, error) {
	query := `
		SELECT task_id, name, status, status_message, resource_id
		FROM task_items
		WHERE task_id = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not query task items: %w", err)
	}
	defer rows.Close()

	items := []model.TaskItemResult{}
	for rows.Next() {
		var it model.TaskItemResult
		if err := rows.Scan(&it.TaskID, &it.Name, &it.Status, &it.StatusMessage, &it.ResourceID); err != nil {
			return nil, fmt.Errorf("could not scan task item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate task items: %w", err)
	}

	return items, nil
}

func (r *Repository) taskExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("could not query task: %w", err)
	}
	return n > 0, nil
}

func scanTask(row *sql.Row) (*model.Task, error) {
	var t model.Task
	var createdAt, updatedAt int64

	err := row.Scan(
		&t.ID, &t.Kind, &t.Action, &t.Status,
		&t.BatchesTotal, &t.BatchesCompleted,
		&t.ItemsTotal, &t.ItemsSucceeded, &t.ItemsFailed,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}
