package taskcreate

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/queue"
	"github.com/slok/geotask/internal/storage"
)

const defaultBatchSize = 100

// ServiceConfig is the configuration for the task create service.
type ServiceConfig struct {
	Repository storage.TaskRepository
	// BatchSize is the maximum number of items per batch, by default 100.
	BatchSize int
	Logger    log.Logger
	TimeNow   func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be positive: %w", model.ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskCreate"})

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	return nil
}

// Service registers tasks and splits their items in batch messages.
type Service struct {
	repo      storage.TaskRepository
	batchSize int
	logger    log.Logger
	timeNow   func() time.Time
}

// NewService creates a new task create service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:      cfg.Repository,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
		timeNow:   cfg.TimeNow,
	}, nil
}

// Request represents the task create request parameters.
type Request struct {
	Kind            model.ResourceKind
	Action          model.TaskAction
	SecurityContext model.SecurityContext
	Items           []model.WorkItem
}

func (r Request) validate() error {
	if err := r.Kind.Validate(); err != nil {
		return err
	}

	if r.Action != model.TaskActionCreate && r.Action != model.TaskActionUpdate {
		return fmt.Errorf("action %q: %w", r.Action, model.ErrUnknownTaskAction)
	}

	if len(r.Items) == 0 {
		return fmt.Errorf("at least one item is required: %w", model.ErrNotValid)
	}

	return nil
}

// Response is the registered task and the messages that carry its batches.
type Response struct {
	Task  model.Task
	Event queue.Event
}

// Run registers the task as pending and returns one message per batch of items.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	codec, err := queue.NewCodec(req.Kind)
	if err != nil {
		return nil, err
	}

	now := s.timeNow().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	batches := chunk(req.Items, s.batchSize)
	task := model.Task{
		ID:           ulid.MustNew(ulid.Timestamp(now), entropy).String(),
		Kind:         req.Kind,
		Action:       req.Action,
		Status:       model.TaskStatusPending,
		BatchesTotal: len(batches),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	messageType := queue.MessageType(req.Kind, req.Action)
	event := queue.Event{Records: make([]queue.Message, 0, len(batches))}
	for _, items := range batches {
		body, err := codec.Encode(model.TaskBatch{
			TaskID:          task.ID,
			Kind:            req.Kind,
			Action:          req.Action,
			SecurityContext: req.SecurityContext,
			Items:           items,
		})
		if err != nil {
			return nil, fmt.Errorf("could not encode batch: %w", err)
		}

		event.Records = append(event.Records, queue.Message{
			MessageID:   ulid.MustNew(ulid.Timestamp(now), entropy).String(),
			EventSource: queue.EventSourceSQS,
			MessageAttributes: map[string]queue.MessageAttribute{
				queue.MessageTypeAttribute: {StringValue: messageType, DataType: "String"},
			},
			Body: string(body),
		})
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("could not create task: %w", err)
	}

	s.logger.Infof("created %s task %s with %d items in %d batches", messageType, task.ID, len(req.Items), len(batches))
	return &Response{Task: task, Event: event}, nil
}

func chunk[T any](items []T, size int) [][]T {
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
