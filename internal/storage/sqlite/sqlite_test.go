package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/storage/sqlite"
)

var testNow = time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath:  filepath.Join(t.TempDir(), "test.db"),
		Logger:  log.Noop,
		TimeNow: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func taskFixture(id string, batches int) model.Task {
	return model.Task{
		ID:           id,
		Kind:         model.ResourceKindPolygon,
		Action:       model.TaskActionCreate,
		Status:       model.TaskStatusPending,
		BatchesTotal: batches,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestTaskCRUD(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(repo.CreateTask(ctx, taskFixture("t1", 3)))
	require.ErrorIs(repo.CreateTask(ctx, taskFixture("t1", 3)), model.ErrAlreadyExists)

	got, err := repo.GetTask(ctx, "t1")
	require.NoError(err)
	assert.Equal(t, taskFixture("t1", 3), *got)

	_, err = repo.GetTask(ctx, "missing")
	require.ErrorIs(err, model.ErrNotFound)
}

func TestUpdateTaskStatus(t *testing.T) {
	tests := map[string]struct {
		batchesTotal     int
		batchesCompleted int
		itemsFailed      bool
		status           model.TaskStatus
		expApplied       bool
		expStatus        model.TaskStatus
	}{
		"Setting in progress should always apply.": {
			batchesTotal: 2,
			status:       model.TaskStatusInProgress,
			expApplied:   true,
			expStatus:    model.TaskStatusInProgress,
		},

		"Finishing with pending batches should not apply.": {
			batchesTotal:     2,
			batchesCompleted: 1,
			status:           model.TaskStatusSuccess,
			expApplied:       false,
			expStatus:        model.TaskStatusInProgress,
		},

		"Finishing with all batches completed should apply.": {
			batchesTotal:     2,
			batchesCompleted: 2,
			status:           model.TaskStatusSuccess,
			expApplied:       true,
			expStatus:        model.TaskStatusSuccess,
		},

		"Finishing with failures and all batches completed should apply.": {
			batchesTotal:     1,
			batchesCompleted: 1,
			itemsFailed:      true,
			status:           model.TaskStatusDoneWithFailures,
			expApplied:       true,
			expStatus:        model.TaskStatusDoneWithFailures,
		},

		"Finishing successfully with failed items should not apply.": {
			batchesTotal:     2,
			batchesCompleted: 2,
			itemsFailed:      true,
			status:           model.TaskStatusSuccess,
			expApplied:       false,
			expStatus:        model.TaskStatusInProgress,
		},

		"Finishing with failures without failed items should apply.": {
			batchesTotal:     1,
			batchesCompleted: 1,
			status:           model.TaskStatusDoneWithFailures,
			expApplied:       true,
			expStatus:        model.TaskStatusDoneWithFailures,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()
			repo := newRepo(t)

			require.NoError(repo.CreateTask(ctx, taskFixture("t1", test.batchesTotal)))
			_, err := repo.UpdateTaskStatus(ctx, "t1", model.TaskStatusInProgress)
			require.NoError(err)
			progress := model.TaskBatchProgress{TaskID: "t1", TotalItems: 1, ItemsSucceeded: 1}
			if test.itemsFailed {
				progress = model.TaskBatchProgress{TaskID: "t1", TotalItems: 1, ItemsFailed: 1}
			}
			for range test.batchesCompleted {
				_, err := repo.UpdateTaskProgress(ctx, progress)
				require.NoError(err)
			}

			applied, err := repo.UpdateTaskStatus(ctx, "t1", test.status)
			require.NoError(err)
			assert.Equal(test.expApplied, applied)

			got, err := repo.GetTask(ctx, "t1")
			require.NoError(err)
			assert.Equal(test.expStatus, got.Status)
		})
	}
}

func TestUpdateTaskStatusFailuresAreNotOverwritten(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(repo.CreateTask(ctx, taskFixture("t1", 2)))

	// A clean batch reports first but finishes late, after a failing batch finished the task.
	clean, err := repo.UpdateTaskProgress(ctx, model.TaskBatchProgress{TaskID: "t1", TotalItems: 1, ItemsSucceeded: 1})
	require.NoError(err)
	require.Zero(clean.ItemsFailed)
	_, err = repo.UpdateTaskProgress(ctx, model.TaskBatchProgress{TaskID: "t1", TotalItems: 1, ItemsFailed: 1})
	require.NoError(err)

	applied, err := repo.UpdateTaskStatus(ctx, "t1", model.TaskStatusDoneWithFailures)
	require.NoError(err)
	require.True(applied)

	applied, err = repo.UpdateTaskStatus(ctx, "t1", model.TaskStatusSuccess)
	require.NoError(err)
	assert.False(t, applied)

	got, err := repo.GetTask(ctx, "t1")
	require.NoError(err)
	assert.Equal(t, model.TaskStatusDoneWithFailures, got.Status)
}

func TestUpdateTaskStatusIdempotentInProgress(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(repo.CreateTask(ctx, taskFixture("t1", 1)))
	_, err := repo.UpdateTaskStatus(ctx, "t1", model.TaskStatusInProgress)
	require.NoError(err)
	once, err := repo.GetTask(ctx, "t1")
	require.NoError(err)

	_, err = repo.UpdateTaskStatus(ctx, "t1", model.TaskStatusInProgress)
	require.NoError(err)
	twice, err := repo.GetTask(ctx, "t1")
	require.NoError(err)

	assert.Equal(t, once, twice)
}

func TestUpdateTaskStatusMissingTask(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.UpdateTaskStatus(context.Background(), "missing", model.TaskStatusInProgress)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.UpdateTaskStatus(context.Background(), "missing", model.TaskStatusSuccess)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateTaskProgress(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(repo.CreateTask(ctx, taskFixture("t1", 2)))

	got, err := repo.UpdateTaskProgress(ctx, model.TaskBatchProgress{TaskID: "t1", TotalItems: 3, ItemsSucceeded: 2, ItemsFailed: 1})
	require.NoError(err)
	assert.Equal(t, 1, got.BatchesCompleted)
	assert.False(t, got.AllBatchesCompleted())

	got, err = repo.UpdateTaskProgress(ctx, model.TaskBatchProgress{TaskID: "t1", TotalItems: 0})
	require.NoError(err)
	assert.Equal(t, 2, got.BatchesCompleted)
	assert.True(t, got.AllBatchesCompleted())
	assert.Equal(t, 3, got.ItemsTotal)
	assert.Equal(t, 2, got.ItemsSucceeded)
	assert.Equal(t, 1, got.ItemsFailed)

	_, err = repo.UpdateTaskProgress(ctx, model.TaskBatchProgress{TaskID: "missing"})
	require.ErrorIs(err, model.ErrNotFound)

	_, err = repo.UpdateTaskProgress(ctx, model.TaskBatchProgress{TaskID: "t1", TotalItems: 1})
	require.ErrorIs(err, model.ErrNotValid)
}

func TestTaskItems(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(repo.CreateTask(ctx, taskFixture("t1", 1)))

	exp := []model.TaskItemResult{
		{Name: "a", TaskID: "t1", Status: model.TaskItemStatusSuccess, ResourceID: "r-a"},
		{Name: "b", TaskID: "t1", Status: model.TaskItemStatusFailure, StatusMessage: "region not found"},
		{Name: "c", TaskID: "t1", Status: model.TaskItemStatusSuccess, ResourceID: "r-c"},
	}
	require.NoError(repo.CreateTaskItems(ctx, exp))
	require.NoError(repo.CreateTaskItems(ctx, []model.TaskItemResult{}))

	got, err := repo.ListTaskItems(ctx, "t1")
	require.NoError(err)
	assert.Equal(t, exp, got)
}

func TestTaskItemsAllOrNothing(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(repo.CreateTask(ctx, taskFixture("t1", 1)))

	err := repo.CreateTaskItems(ctx, []model.TaskItemResult{
		{Name: "a", TaskID: "t1", Status: model.TaskItemStatusSuccess},
		{Name: "b", TaskID: "missing", Status: model.TaskItemStatusSuccess},
	})
	require.ErrorIs(err, model.ErrNotFound)

	got, err := repo.ListTaskItems(ctx, "t1")
	require.NoError(err)
	assert.Empty(t, got)
}

func TestResources(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	poly := model.Resource{
		ID:       "p1",
		Kind:     model.ResourceKindPolygon,
		ParentID: "r1",
		Fields: model.ResourceFields{
			Name:       "field-a",
			Tags:       map[string]string{"crop": "corn"},
			Attributes: map[string]any{"area": 12.5},
			Boundary:   [][][2]float64{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		},
		CreatedBy: "ops@example.com",
		CreatedAt: testNow,
	}
	require.NoError(repo.CreateResource(ctx, poly))
	require.ErrorIs(repo.CreateResource(ctx, poly), model.ErrAlreadyExists)

	got, err := repo.GetResource(ctx, model.ResourceKindPolygon, "p1")
	require.NoError(err)
	assert.Equal(t, poly, *got)

	_, err = repo.GetResource(ctx, model.ResourceKindRegion, "p1")
	require.ErrorIs(err, model.ErrNotFound)

	poly.Fields.Description = "irrigated"
	poly.UpdatedBy = "ops@example.com"
	poly.UpdatedAt = testNow.Add(time.Hour)
	require.NoError(repo.UpdateResource(ctx, poly))

	got, err = repo.GetResource(ctx, model.ResourceKindPolygon, "p1")
	require.NoError(err)
	assert.Equal(t, poly, *got)

	require.ErrorIs(repo.UpdateResource(ctx, model.Resource{ID: "missing", Kind: model.ResourceKindPolygon}), model.ErrNotFound)
}
