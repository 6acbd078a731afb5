package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/geotask/internal/app/batch"
	"github.com/slok/geotask/internal/app/dispatch"
	"github.com/slok/geotask/internal/app/taskprocess"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/printer"
	"github.com/slok/geotask/internal/queue"
	"github.com/slok/geotask/internal/resource/local"
	"github.com/slok/geotask/internal/storage/sqlite"
)

type ProcessCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	eventFile string
	format    string
}

// NewProcessCommand returns the process command.
func NewProcessCommand(rootCmd *RootCommand, app *kingpin.Application) *ProcessCommand {
	c := &ProcessCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("process", "Process the task batches of a queue event.")
	c.Cmd.Flag("event-file", "Event JSON file, '-' reads from stdin.").Default("-").StringVar(&c.eventFile)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatJSON).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ProcessCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProcessCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	data, err := readInput(c.rootCmd.Stdin, c.eventFile)
	if err != nil {
		return fmt.Errorf("could not read event: %w", err)
	}

	var event queue.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("could not decode event: %w", err)
	}

	wfCfg, err := c.rootCmd.WorkflowConfig(ctx)
	if err != nil {
		return fmt.Errorf("could not load workflow config: %w", err)
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// One workflow per resource kind.
	workflows := map[model.ResourceKind]queue.Workflow{}
	for _, kind := range model.ResourceKinds() {
		actions, err := local.NewActions(local.ActionsConfig{
			Kind:       kind,
			Repository: repo,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("could not create %s actions: %w", kind, err)
		}

		dispatcher, err := dispatch.NewDispatcher(dispatch.DispatcherConfig{
			Actions: actions,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("could not create %s dispatcher: %w", kind, err)
		}

		processor, err := batch.NewProcessor(batch.ProcessorConfig{
			Dispatcher:     dispatcher,
			ItemRepository: repo,
			MaxConcurrency: wfCfg.MaxConcurrencyFor(kind),
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("could not create %s batch processor: %w", kind, err)
		}

		svc, err := taskprocess.NewService(taskprocess.ServiceConfig{
			Processor:  processor,
			Repository: repo,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("could not create %s task process service: %w", kind, err)
		}

		workflows[kind] = svc
	}

	router, err := queue.NewRouter(queue.RouterConfig{
		Workflows: workflows,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create router: %w", err)
	}

	resp := router.Handle(ctx, event)

	var p printer.Printer
	switch c.format {
	case formatTable:
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	default:
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintBatchResponse(resp); err != nil {
		return fmt.Errorf("could not print batch response: %w", err)
	}

	return nil
}
