package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slok/geotask/internal/model"
)

// CreateResource creates a new resource in the repository.
func (r *Repository) CreateResource(ctx context.Context, res model.Resource) error {
	tags, attrs, boundary, err := marshalResourceFields(res.Fields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO resources (
			id, kind, parent_id,
			name, description, tags, attributes, boundary,
			created_by, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		res.ID, res.Kind, res.ParentID,
		res.Fields.Name, res.Fields.Description, tags, attrs, boundary,
		res.CreatedBy, res.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: resources.") {
			return fmt.Errorf("resource already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert resource: %w", err)
	}

	r.logger.Debugf("Created %s in repository: %s", res.Kind, res.ID)
	return nil
}

// GetResource retrieves a resource of a kind by ID.
func (r *Repository) GetResource(ctx context.Context, kind model.ResourceKind, id string) (*model.Resource, error) {
	query := `
		SELECT
			id, kind, parent_id,
			name, description, tags, attributes, boundary,
			created_by, created_at, updated_by, updated_at
		FROM resources
		WHERE id = ? AND kind = ?
	`

	var (
		res                   model.Resource
		tags, attrs, boundary string
		createdAt             int64
		updatedAt             sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id, kind).Scan(
		&res.ID, &res.Kind, &res.ParentID,
		&res.Fields.Name, &res.Fields.Description, &tags, &attrs, &boundary,
		&res.CreatedBy, &createdAt, &res.UpdatedBy, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query resource: %w", err)
	}

	if err := unmarshalResourceFields(&res.Fields, tags, attrs, boundary); err != nil {
		return nil, err
	}
	res.CreatedAt = time.Unix(createdAt, 0).UTC()
	if updatedAt.Valid {
		res.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	}

	return &res, nil
}

// UpdateResource updates an existing resource.
func (r *Repository) UpdateResource(ctx context.Context, res model.Resource) error {
	tags, attrs, boundary, err := marshalResourceFields(res.Fields)
	if err != nil {
		return err
	}

	query := `
		UPDATE resources SET
			parent_id = ?,
			name = ?, description = ?, tags = ?, attributes = ?, boundary = ?,
			updated_by = ?, updated_at = ?
		WHERE id = ? AND kind = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		res.ParentID,
		res.Fields.Name, res.Fields.Description, tags, attrs, boundary,
		res.UpdatedBy, res.UpdatedAt.Unix(),
		res.ID, res.Kind,
	)
	if err != nil {
		return fmt.Errorf("could not update resource: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", res.Kind, res.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated %s in repository: %s", res.Kind, res.ID)
	return nil
}

func marshalResourceFields(f model.ResourceFields) (tags, attrs, boundary string, err error) {
	t, err := json.Marshal(f.Tags)
	if err != nil {
		return "", "", "", fmt.Errorf("could not marshal tags: %w", err)
	}
	a, err := json.Marshal(f.Attributes)
	if err != nil {
		return "", "", "", fmt.Errorf("could not marshal attributes: %w", err)
	}
	b, err := json.Marshal(f.Boundary)
	if err != nil {
		return "", "", "", fmt.Errorf("could not marshal boundary: %w", err)
	}
	return string(t), string(a), string(b), nil
}

func unmarshalResourceFields(f *model.ResourceFields, tags, attrs, boundary string) error {
	if err := json.Unmarshal([]byte(tags), &f.Tags); err != nil {
		return fmt.Errorf("could not unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(attrs), &f.Attributes); err != nil {
		return fmt.Errorf("could not unmarshal attributes: %w", err)
	}
	if err := json.Unmarshal([]byte(boundary), &f.Boundary); err != nil {
		return fmt.Errorf("could not unmarshal boundary: %w", err)
	}
	return nil
}
