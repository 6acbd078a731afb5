package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/geotask/internal/app/taskcreate"
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/printer"
	"github.com/slok/geotask/internal/queue"
	"github.com/slok/geotask/internal/storage/sqlite"
)

type TaskCreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	kind      string
	action    string
	itemsFile string
	batchSize int
	email     string
	groupID   string
	format    string
}

// NewTaskCreateCommand returns the task create command.
func NewTaskCreateCommand(rootCmd *RootCommand, taskCmd *kingpin.CmdClause) *TaskCreateCommand {
	c := &TaskCreateCommand{rootCmd: rootCmd}

	kinds := []string{}
	for _, k := range model.ResourceKinds() {
		kinds = append(kinds, string(k))
	}

	c.Cmd = taskCmd.Command("create", "Register a task and print the queue event with its batches.")
	c.Cmd.Flag("kind", "Resource kind of the task items.").Required().EnumVar(&c.kind, kinds...)
	c.Cmd.Flag("action", "Action applied to every item.").Required().EnumVar(&c.action, string(model.TaskActionCreate), string(model.TaskActionUpdate))
	c.Cmd.Flag("items-file", "JSON file with the list of items, '-' reads from stdin.").Default("-").StringVar(&c.itemsFile)
	c.Cmd.Flag("batch-size", "Maximum number of items per batch (overrides the config file).").IntVar(&c.batchSize)
	c.Cmd.Flag("email", "Email of the identity the items are processed for.").Required().StringVar(&c.email)
	c.Cmd.Flag("group", "Group ID of the identity the items are processed for.").StringVar(&c.groupID)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatJSON).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c TaskCreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskCreateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	kind := model.ResourceKind(c.kind)
	action := model.TaskAction(c.action)

	data, err := readInput(c.rootCmd.Stdin, c.itemsFile)
	if err != nil {
		return fmt.Errorf("could not read items: %w", err)
	}

	codec, err := queue.NewCodec(kind)
	if err != nil {
		return err
	}
	items, err := codec.DecodeItems(action, data)
	if err != nil {
		return err
	}

	wfCfg, err := c.rootCmd.WorkflowConfig(ctx)
	if err != nil {
		return fmt.Errorf("could not load workflow config: %w", err)
	}
	batchSize := wfCfg.BatchSize
	if c.batchSize != 0 {
		batchSize = c.batchSize
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

	svc, err := taskcreate.NewService(taskcreate.ServiceConfig{
		Repository: repo,
		BatchSize:  batchSize,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	sc := model.SecurityContext{Email: c.email, GroupID: c.groupID}
	if c.groupID != "" {
		sc.GroupRoles = map[string]string{c.groupID: "admin"}
	}

	resp, err := svc.Run(ctx, taskcreate.Request{
		Kind:            kind,
		Action:          action,
		SecurityContext: sc,
		Items:           items,
	})
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case formatTable:
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
		_ = p.PrintMessage(fmt.Sprintf("Task created: %s", resp.Task.ID))
	default:
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintEvent(resp.Event); err != nil {
		return fmt.Errorf("could not print event: %w", err)
	}

	return nil
}
