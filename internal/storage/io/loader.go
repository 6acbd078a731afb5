package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/slok/geotask/internal/model"
)

// WorkflowConfigYAMLRepository loads workflow configuration from YAML files.
type WorkflowConfigYAMLRepository struct {
	fs fs.FS
}

// NewWorkflowConfigYAMLRepository creates a new YAML workflow config repository.
func NewWorkflowConfigYAMLRepository(filesystem fs.FS) *WorkflowConfigYAMLRepository {
	return &WorkflowConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads a workflow configuration from a YAML file and returns a validated domain model.
func (r *WorkflowConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.WorkflowConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.WorkflowConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.WorkflowConfig{}, ctx.Err()
	}

	var cfg WorkflowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.WorkflowConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return model.WorkflowConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel(), nil
}

// WorkflowConfig represents the YAML structure for workflow configuration.
type WorkflowConfig struct {
	MaxConcurrency int                   `yaml:"max_concurrency"`
	BatchSize      int                   `yaml:"batch_size"`
	Kinds          map[string]KindConfig `yaml:"kinds"`
}

// KindConfig represents the YAML structure for a resource kind workflow configuration.
type KindConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

func (c WorkflowConfig) validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be positive, got: %d", c.MaxConcurrency)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be positive, got: %d", c.BatchSize)
	}

	for name, k := range c.Kinds {
		if err := model.ResourceKind(name).Validate(); err != nil {
			return fmt.Errorf("kinds: %w", err)
		}
		if k.MaxConcurrency < 0 {
			return fmt.Errorf("kinds.%s.max_concurrency must be positive, got: %d", name, k.MaxConcurrency)
		}
	}

	return nil
}

func (c WorkflowConfig) toModel() model.WorkflowConfig {
	cfg := model.WorkflowConfig{
		MaxConcurrency: c.MaxConcurrency,
		BatchSize:      c.BatchSize,
	}

	if len(c.Kinds) > 0 {
		cfg.Kinds = map[model.ResourceKind]model.KindWorkflowConfig{}
		for name, k := range c.Kinds {
			cfg.Kinds[model.ResourceKind(name)] = model.KindWorkflowConfig{MaxConcurrency: k.MaxConcurrency}
		}
	}

	return cfg
}
