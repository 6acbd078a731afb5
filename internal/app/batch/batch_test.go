package batch_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/geotask/internal/app/batch"
	"github.com/slok/geotask/internal/app/dispatch"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/resource/resourcemock"
	"github.com/slok/geotask/internal/storage/storagemock"
)

var noopDispatcher = batch.DispatcherFunc(func(ctx context.Context, b model.TaskBatch, item model.WorkItem) model.TaskItemResult {
	return model.TaskItemResult{Name: item.ItemName(), TaskID: b.TaskID, Status: model.TaskItemStatusSuccess}
})

func TestNewProcessor(t *testing.T) {
	tests := map[string]struct {
		config batch.ProcessorConfig
		expErr bool
	}{
		"valid config should create processor": {
			config: batch.ProcessorConfig{
				Dispatcher:     noopDispatcher,
				ItemRepository: &storagemock.MockTaskItemRepository{},
				MaxConcurrency: 5,
			},
		},
		"zero concurrency should use the default": {
			config: batch.ProcessorConfig{
				Dispatcher:     noopDispatcher,
				ItemRepository: &storagemock.MockTaskItemRepository{},
			},
		},
		"negative concurrency should fail": {
			config: batch.ProcessorConfig{
				Dispatcher:     noopDispatcher,
				ItemRepository: &storagemock.MockTaskItemRepository{},
				MaxConcurrency: -1,
			},
			expErr: true,
		},
		"missing dispatcher should fail": {
			config: batch.ProcessorConfig{
				ItemRepository: &storagemock.MockTaskItemRepository{},
			},
			expErr: true,
		},
		"missing item repository should fail": {
			config: batch.ProcessorConfig{
				Dispatcher: noopDispatcher,
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := batch.NewProcessor(test.config)
			if test.expErr {
				require.Error(t, err)
				require.Nil(t, p)
			} else {
				require.NoError(t, err)
				require.NotNil(t, p)
			}
		})
	}
}

func createItems(names ...string) []model.WorkItem {
	items := make([]model.WorkItem, 0, len(names))
	for _, n := range names {
		items = append(items, model.CreateItem{ParentID: "region-1", Fields: model.ResourceFields{Name: n}})
	}
	return items
}

func TestProcessorProcess(t *testing.T) {
	sc := model.SecurityContext{Email: "ops@example.com"}

	tests := map[string]struct {
		batch       model.TaskBatch
		mockActions func(m *resourcemock.MockActions)
		mockRepo    func(m *storagemock.MockTaskItemRepository)
		expProgress *model.TaskBatchProgress
		expErr      bool
	}{
		"A batch with a failing item should store all results in order and count the failure.": {
			batch: model.TaskBatch{TaskID: "task-1", Action: model.TaskActionCreate, SecurityContext: sc, Items: createItems("a", "b", "c")},
			mockActions: func(m *resourcemock.MockActions) {
				m.On("Create", mock.Anything, sc, "region-1", model.ResourceFields{Name: "a"}).Once().Return(&model.Resource{ID: "id-a"}, nil)
				m.On("Create", mock.Anything, sc, "region-1", model.ResourceFields{Name: "b"}).Once().Return(nil, fmt.Errorf("invalid boundary"))
				m.On("Create", mock.Anything, sc, "region-1", model.ResourceFields{Name: "c"}).Once().Return(&model.Resource{ID: "id-c"}, nil)
			},
			mockRepo: func(m *storagemock.MockTaskItemRepository) {
				exp := []model.TaskItemResult{
					{Name: "a", TaskID: "task-1", Status: model.TaskItemStatusSuccess, ResourceID: "id-a"},
					{Name: "b", TaskID: "task-1", Status: model.TaskItemStatusFailure, StatusMessage: "invalid boundary"},
					{Name: "c", TaskID: "task-1", Status: model.TaskItemStatusSuccess, ResourceID: "id-c"},
				}
				m.On("CreateTaskItems", mock.Anything, exp).Once().Return(nil)
			},
			expProgress: &model.TaskBatchProgress{TaskID: "task-1", TotalItems: 3, ItemsSucceeded: 2, ItemsFailed: 1},
		},

		"An empty batch should store an empty result set.": {
			batch:       model.TaskBatch{TaskID: "task-1", Action: model.TaskActionCreate, SecurityContext: sc, Items: []model.WorkItem{}},
			mockActions: func(m *resourcemock.MockActions) {},
			mockRepo: func(m *storagemock.MockTaskItemRepository) {
				m.On("CreateTaskItems", mock.Anything, []model.TaskItemResult{}).Once().Return(nil)
			},
			expProgress: &model.TaskBatchProgress{TaskID: "task-1"},
		},

		"An unknown action should fail every item.": {
			batch: model.TaskBatch{TaskID: "task-1", Action: "delete", SecurityContext: sc, Items: []model.WorkItem{
				model.UntypedItem{Fields: model.ResourceFields{Name: "a"}},
				model.UntypedItem{Fields: model.ResourceFields{Name: "b"}},
			}},
			mockActions: func(m *resourcemock.MockActions) {},
			mockRepo: func(m *storagemock.MockTaskItemRepository) {
				exp := []model.TaskItemResult{
					{Name: "a", TaskID: "task-1", Status: model.TaskItemStatusFailure, StatusMessage: "unknown task action"},
					{Name: "b", TaskID: "task-1", Status: model.TaskItemStatusFailure, StatusMessage: "unknown task action"},
				}
				m.On("CreateTaskItems", mock.Anything, exp).Once().Return(nil)
			},
			expProgress: &model.TaskBatchProgress{TaskID: "task-1", TotalItems: 2, ItemsFailed: 2},
		},

		"A failing bulk write should fail the batch.": {
			batch: model.TaskBatch{TaskID: "task-1", Action: model.TaskActionCreate, SecurityContext: sc, Items: createItems("a")},
			mockActions: func(m *resourcemock.MockActions) {
				m.On("Create", mock.Anything, sc, "region-1", model.ResourceFields{Name: "a"}).Once().Return(&model.Resource{ID: "id-a"}, nil)
			},
			mockRepo: func(m *storagemock.MockTaskItemRepository) {
				m.On("CreateTaskItems", mock.Anything, mock.Anything).Once().Return(fmt.Errorf("transaction cancelled"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			actions := &resourcemock.MockActions{}
			test.mockActions(actions)
			repo := &storagemock.MockTaskItemRepository{}
			test.mockRepo(repo)

			d, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{Actions: actions})
			require.NoError(err)
			p, err := batch.NewProcessor(batch.ProcessorConfig{
				Dispatcher:     d,
				ItemRepository: repo,
				MaxConcurrency: 2,
			})
			require.NoError(err)

			progress, err := p.Process(context.Background(), test.batch)

			if test.expErr {
				require.Error(err)
				require.Nil(progress)
			} else {
				require.NoError(err)
				assert.Equal(t, test.expProgress, progress)
			}
			actions.AssertExpectations(t)
			repo.AssertExpectations(t)
		})
	}
}

func TestProcessorProcessBoundsConcurrency(t *testing.T) {
	require := require.New(t)

	const maxConcurrency = 3
	var inFlight, peak atomic.Int64
	d := batch.DispatcherFunc(func(ctx context.Context, b model.TaskBatch, item model.WorkItem) model.TaskItemResult {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if current <= p || peak.CompareAndSwap(p, current) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return model.TaskItemResult{Name: item.ItemName(), TaskID: b.TaskID, Status: model.TaskItemStatusSuccess}
	})

	repo := &storagemock.MockTaskItemRepository{}
	repo.On("CreateTaskItems", mock.Anything, mock.MatchedBy(func(items []model.TaskItemResult) bool {
		for i, it := range items {
			if it.Name != fmt.Sprintf("item-%d", i) {
				return false
			}
		}
		return len(items) == 40
	})).Once().Return(nil)

	p, err := batch.NewProcessor(batch.ProcessorConfig{Dispatcher: d, ItemRepository: repo, MaxConcurrency: maxConcurrency})
	require.NoError(err)

	names := make([]string, 0, 40)
	for i := range 40 {
		names = append(names, fmt.Sprintf("item-%d", i))
	}
	progress, err := p.Process(context.Background(), model.TaskBatch{TaskID: "task-1", Action: model.TaskActionCreate, Items: createItems(names...)})
	require.NoError(err)

	assert.Equal(t, 40, progress.ItemsSucceeded)
	assert.LessOrEqual(t, peak.Load(), int64(maxConcurrency))
	repo.AssertExpectations(t)
}

func TestProcessorProcessBrokenResults(t *testing.T) {
	d := batch.DispatcherFunc(func(ctx context.Context, b model.TaskBatch, item model.WorkItem) model.TaskItemResult {
		return model.TaskItemResult{Name: item.ItemName(), TaskID: b.TaskID}
	})
	repo := &storagemock.MockTaskItemRepository{}

	p, err := batch.NewProcessor(batch.ProcessorConfig{Dispatcher: d, ItemRepository: repo})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), model.TaskBatch{TaskID: "task-1", Action: model.TaskActionCreate, Items: createItems("a")})

	assert.ErrorIs(t, err, model.ErrInternal)
	repo.AssertNotCalled(t, "CreateTaskItems", mock.Anything, mock.Anything)
}
