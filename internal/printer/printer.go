package printer

import (
	"github.com/slok/geotask/internal/model"
	"github.com/slok/geotask/internal/queue"
)

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintTaskStatus(task model.Task, items []model.TaskItemResult) error
	PrintEvent(event queue.Event) error
	PrintBatchResponse(resp queue.BatchResponse) error
	PrintMessage(msg string) error
}
