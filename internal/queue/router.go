package queue

import (
	"context"
	"fmt"

	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
)

// Workflow processes a task batch.
type Workflow interface {
	Run(ctx context.Context, batch model.TaskBatch) error
}

// WorkflowFunc is a helper to use functions as workflows.
type WorkflowFunc func(ctx context.Context, batch model.TaskBatch) error

func (f WorkflowFunc) Run(ctx context.Context, batch model.TaskBatch) error { return f(ctx, batch) }

type route struct {
	codec    *Codec
	workflow Workflow
}

// RouterConfig is the configuration for the message router.
type RouterConfig struct {
	// Workflows are the workflows of each resource kind, every action of the kind is routed to it.
	Workflows map[model.ResourceKind]Workflow
	Logger    log.Logger
}

func (c *RouterConfig) defaults() error {
	if len(c.Workflows) == 0 {
		return fmt.Errorf("at least one workflow is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "queue.Router"})

	return nil
}

// Router routes queue messages to the workflow of their message type.
type Router struct {
	routes map[string]route
	logger log.Logger
}

// NewRouter returns a new message router.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	routes := map[string]route{}
	for kind, wf := range cfg.Workflows {
		if wf == nil {
			return nil, fmt.Errorf("invalid config: workflow for %s is nil", kind)
		}
		codec, err := NewCodec(kind)
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		for _, action := range []model.TaskAction{model.TaskActionCreate, model.TaskActionUpdate} {
			routes[MessageType(kind, action)] = route{codec: codec, workflow: wf}
		}
	}

	return &Router{routes: routes, logger: cfg.Logger}, nil
}

// Handle processes the messages of the event one by one. The messages that could not be
// processed are returned as item failures, the rest are considered done.
func (r *Router) Handle(ctx context.Context, event Event) BatchResponse {
	resp := BatchResponse{BatchItemFailures: []ItemFailure{}}

	for _, msg := range event.Records {
		logger := r.logger.WithValues(log.Kv{"message-id": msg.MessageID})

		if msg.EventSource != EventSourceSQS {
			logger.Warningf("ignoring message from %q event source", msg.EventSource)
			continue
		}

		rt, ok := r.routes[msg.MessageType()]
		if !ok {
			logger.Warningf("ignoring message with unrecognized type %q", msg.MessageType())
			continue
		}

		if err := r.handleMessage(ctx, rt, msg); err != nil {
			logger.Errorf("could not process message: %s", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, ItemFailure{ItemIdentifier: msg.MessageID})
			continue
		}

		logger.Debugf("message processed")
	}

	return resp
}

func (r *Router) handleMessage(ctx context.Context, rt route, msg Message) error {
	batch, err := rt.codec.Decode([]byte(msg.Body))
	if err != nil {
		return err
	}

	ctx = log.CtxWithValues(ctx, log.Kv{"message-id": msg.MessageID, "task-id": batch.TaskID})
	return rt.workflow.Run(ctx, batch)
}
