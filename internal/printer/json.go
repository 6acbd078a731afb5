package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/queue"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// taskStatusOutput represents the full task status output.
type taskStatusOutput struct {
	ID               string       `json:"id"`
	Kind             string       `json:"kind"`
	Action           string       `json:"action"`
	Status           string       `json:"status"`
	BatchesTotal     int          `json:"batches_total"`
	BatchesCompleted int          `json:"batches_completed"`
	ItemsTotal       int          `json:"items_total"`
	ItemsSucceeded   int          `json:"items_succeeded"`
	ItemsFailed      int          `json:"items_failed"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	Items            []itemOutput `json:"items"`
}

// itemOutput represents a task item result output.
type itemOutput struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	StatusMessage string `json:"status_message,omitempty"`
	ResourceID    string `json:"resource_id,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintTaskStatus prints the task and its item results in JSON format.
func (j *JSONPrinter) PrintTaskStatus(task model.Task, items []model.TaskItemResult) error {
	output := taskStatusOutput{
		ID:               task.ID,
		Kind:             string(task.Kind),
		Action:           string(task.Action),
		Status:           string(task.Status),
		BatchesTotal:     task.BatchesTotal,
		BatchesCompleted: task.BatchesCompleted,
		ItemsTotal:       task.ItemsTotal,
		ItemsSucceeded:   task.ItemsSucceeded,
		ItemsFailed:      task.ItemsFailed,
		CreatedAt:        task.CreatedAt.UTC(),
		UpdatedAt:        task.UpdatedAt.UTC(),
		Items:            make([]itemOutput, 0, len(items)),
	}

	for _, it := range items {
		output.Items = append(output.Items, itemOutput{
			Name:          it.Name,
			Status:        string(it.Status),
			StatusMessage: it.StatusMessage,
			ResourceID:    it.ResourceID,
		})
	}

	return j.encode(output)
}

// PrintEvent prints the event in the same JSON shape it is read from.
func (j *JSONPrinter) PrintEvent(event queue.Event) error {
	if event.Records == nil {
		event.Records = []queue.Message{}
	}
	return j.encode(event)
}

// PrintBatchResponse prints the batch response in JSON format.
func (j *JSONPrinter) PrintBatchResponse(resp queue.BatchResponse) error {
	if resp.BatchItemFailures == nil {
		resp.BatchItemFailures = []queue.ItemFailure{}
	}
	return j.encode(resp)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
