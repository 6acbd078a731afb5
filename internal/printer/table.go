package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/queue"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTaskStatus prints the task details followed by its item results.
func (t *TablePrinter) PrintTaskStatus(task model.Task, items []model.TaskItemResult) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", task.ID)
	fmt.Fprintf(t.writer, "Kind:       %s\n", task.Kind)
	fmt.Fprintf(t.writer, "Action:     %s\n", task.Action)
	fmt.Fprintf(t.writer, "Status:     %s\n", task.Status)
	fmt.Fprintf(t.writer, "Batches:    %d/%d\n", task.BatchesCompleted, task.BatchesTotal)
	fmt.Fprintf(t.writer, "Items:      %d (succeeded: %d, failed: %d)\n", task.ItemsTotal, task.ItemsSucceeded, task.ItemsFailed)
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(task.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:    %s\n", TimeAgo(task.UpdatedAt))

	if len(items) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "NAME\tSTATUS\tRESOURCE\tMESSAGE")

	// Print rows.
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Name, it.Status, orDash(it.ResourceID), orDash(it.StatusMessage))
	}

	return nil
}

// PrintEvent prints the messages of an event.
func (t *TablePrinter) PrintEvent(event queue.Event) error {
	if len(event.Records) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "MESSAGE ID\tTYPE\tSIZE")
	for _, m := range event.Records {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", m.MessageID, m.MessageType(), len(m.Body))
	}

	return nil
}

// PrintBatchResponse prints the messages that failed.
func (t *TablePrinter) PrintBatchResponse(resp queue.BatchResponse) error {
	if len(resp.BatchItemFailures) == 0 {
		fmt.Fprintln(t.writer, "All messages processed")
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "FAILED MESSAGE ID")
	for _, f := range resp.BatchItemFailures {
		fmt.Fprintln(tw, f.ItemIdentifier)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
