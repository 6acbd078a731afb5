package model

// WorkflowConfig is the configuration of the batch workflows.
type WorkflowConfig struct {
	// MaxConcurrency is the maximum number of items dispatched at the same time on a batch.
	MaxConcurrency int
	// BatchSize is the maximum number of items on each batch of a new task.
	BatchSize int
	// Kinds has the settings that override the defaults for a resource kind.
	Kinds map[ResourceKind]KindWorkflowConfig
}

// KindWorkflowConfig is the workflow configuration of a single resource kind.
type KindWorkflowConfig struct {
	MaxConcurrency int
}

// MaxConcurrencyFor returns the concurrency to use for a resource kind.
func (c WorkflowConfig) MaxConcurrencyFor(kind ResourceKind) int {
	if k, ok := c.Kinds[kind]; ok && k.MaxConcurrency != 0 {
		return k.MaxConcurrency
	}
	return c.MaxConcurrency
}
