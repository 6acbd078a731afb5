package resourcemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/resource"
)

// MockActions is a mock of resource.Actions.
type MockActions struct {
	mock.Mock
}

var _ resource.Actions = &MockActions{}

func (m *MockActions) Create(ctx context.Context, sc model.SecurityContext, parentID string, fields model.ResourceFields) (*model.Resource, error) {
	args := m.Called(ctx, sc, parentID, fields)
	r, _ := args.Get(0).(*model.Resource)
	return r, args.Error(1)
}

func (m *MockActions) Update(ctx context.Context, sc model.SecurityContext, id string, fields model.ResourceFields) (*model.Resource, error) {
	args := m.Called(ctx, sc, id, fields)
	r, _ := args.Get(0).(*model.Resource)
	return r, args.Error(1)
}
