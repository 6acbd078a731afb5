package resource

import (
	"context"

	"github.com/slok/geotask/internal/model"
)

// Actions are the mutations a work item can apply on a geographic resource.
type Actions interface {
	// Create creates a new resource owned by parentID.
	Create(ctx context.Context, sc model.SecurityContext, parentID string, fields model.ResourceFields) (*model.Resource, error)
	// Update updates the resource identified by id.
	Update(ctx context.Context, sc model.SecurityContext, id string, fields model.ResourceFields) (*model.Resource, error)
}
