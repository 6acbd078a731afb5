package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/geotask/internal/conventions"
	"github.com/slok/geotask/internal/log"
	"github.com/slok/geotask/internal/model"
	storageio "github.com/slok/geotask/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug          bool
	NoLog          bool
	NoColor        bool
	LoggerType     string
	DBPath         string
	ConfigPath     string
	MaxConcurrency int

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	dataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("db-path", "Path to the SQLite database file.").Default(conventions.DBPath(dataDir)).StringVar(&c.DBPath)
	app.Flag("config", "Path to the workflow configuration YAML file.").StringVar(&c.ConfigPath)
	app.Flag("concurrency", "Maximum number of items processed at the same time on a batch.").Default("10").IntVar(&c.MaxConcurrency)

	return c
}

// WorkflowConfig returns the workflow configuration, the config file values override the flags.
func (c RootCommand) WorkflowConfig(ctx context.Context) (model.WorkflowConfig, error) {
	if c.MaxConcurrency <= 0 {
		return model.WorkflowConfig{}, fmt.Errorf("concurrency must be positive, got: %d: %w", c.MaxConcurrency, model.ErrNotValid)
	}

	cfg := model.WorkflowConfig{MaxConcurrency: c.MaxConcurrency}
	if c.ConfigPath == "" {
		return cfg, nil
	}

	dir, file := filepath.Split(c.ConfigPath)
	if dir == "" {
		dir = "."
	}
	repo := storageio.NewWorkflowConfigYAMLRepository(os.DirFS(dir))
	fileCfg, err := repo.GetConfig(ctx, file)
	if err != nil {
		return model.WorkflowConfig{}, err
	}

	if fileCfg.MaxConcurrency != 0 {
		cfg.MaxConcurrency = fileCfg.MaxConcurrency
	}
	cfg.BatchSize = fileCfg.BatchSize
	cfg.Kinds = fileCfg.Kinds

	return cfg, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
