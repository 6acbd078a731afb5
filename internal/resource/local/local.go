package local

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/storage"
)

// ActionsConfig is the configuration for the local resource actions.
type ActionsConfig struct {
	Kind       model.ResourceKind
	Repository storage.ResourceRepository
	Logger     log.Logger
	// TimeNow is used to set the resource timestamps, by default time.Now.
	TimeNow func() time.Time
}

func (c *ActionsConfig) defaults() error {
	if err := c.Kind.Validate(); err != nil {
		return err
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "resource.Local", "kind": c.Kind})

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	return nil
}

// Actions mutates the resources of one kind stored on a local repository.
type Actions struct {
	kind    model.ResourceKind
	repo    storage.ResourceRepository
	logger  log.Logger
	timeNow func() time.Time
}

// NewActions returns new local resource actions.
func NewActions(cfg ActionsConfig) (*Actions, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Actions{
		kind:    cfg.Kind,
		repo:    cfg.Repository,
		logger:  cfg.Logger,
		timeNow: cfg.TimeNow,
	}, nil
}

// Create creates a new resource. The parent must exist when the kind is owned by another resource kind.
func (a *Actions) Create(ctx context.Context, sc model.SecurityContext, parentID string, fields model.ResourceFields) (*model.Resource, error) {
	if sc.Email == "" {
		return nil, fmt.Errorf("caller identity is required: %w", model.ErrNotValid)
	}
	if fields.Name == "" {
		return nil, fmt.Errorf("%s name is required: %w", a.kind, model.ErrNotValid)
	}
	if parentID == "" {
		return nil, fmt.Errorf("%s is required: %w", a.kind.ParentField(), model.ErrNotValid)
	}

	if parentKind := a.kind.ParentKind(); parentKind != "" {
		_, err := a.repo.GetResource(ctx, parentKind, parentID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("%s %s: %w", parentKind, parentID, model.ErrNotFound)
			}
			return nil, fmt.Errorf("could not get %s: %w", parentKind, err)
		}
	}

	now := a.timeNow().UTC()
	r := model.Resource{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Kind:      a.kind,
		ParentID:  parentID,
		Fields:    fields,
		CreatedBy: sc.Email,
		CreatedAt: now,
	}

	if err := a.repo.CreateResource(ctx, r); err != nil {
		return nil, fmt.Errorf("could not create %s: %w", a.kind, err)
	}

	a.logger.Debugf("created %s %s (%s)", a.kind, r.ID, r.Fields.Name)
	return &r, nil
}

// Update merges the non zero fields into an existing resource.
func (a *Actions) Update(ctx context.Context, sc model.SecurityContext, id string, fields model.ResourceFields) (*model.Resource, error) {
	if sc.Email == "" {
		return nil, fmt.Errorf("caller identity is required: %w", model.ErrNotValid)
	}
	if id == "" {
		return nil, fmt.Errorf("%s id is required: %w", a.kind, model.ErrNotValid)
	}

	r, err := a.repo.GetResource(ctx, a.kind, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", a.kind, id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get %s: %w", a.kind, err)
	}

	r.Fields = mergeFields(r.Fields, fields)
	r.UpdatedBy = sc.Email
	r.UpdatedAt = a.timeNow().UTC()

	if err := a.repo.UpdateResource(ctx, *r); err != nil {
		return nil, fmt.Errorf("could not update %s: %w", a.kind, err)
	}

	a.logger.Debugf("updated %s %s", a.kind, r.ID)
	return r, nil
}

func mergeFields(current, changes model.ResourceFields) model.ResourceFields {
	if changes.Name != "" {
		current.Name = changes.Name
	}
	if changes.Description != "" {
		current.Description = changes.Description
	}
	if changes.Tags != nil {
		current.Tags = changes.Tags
	}
	if changes.Attributes != nil {
		current.Attributes = changes.Attributes
	}
	if changes.Boundary != nil {
		current.Boundary = changes.Boundary
	}
	return current
}
