package queue

import (
	"fmt"
	"strings"

	"github.com/slok/geotask/internal/model"
)

// EventSourceSQS is the event source of the records delivered by the queue.
const EventSourceSQS = "aws:sqs"

// MessageTypeAttribute is the message attribute that holds the message type.
const MessageTypeAttribute = "messageType"

// Event is a group of messages delivered together by the queue.
type Event struct {
	Records []Message `json:"Records"`
}

// Message is a single queue message, each one carries a task batch.
type Message struct {
	MessageID         string                      `json:"messageId"`
	EventSource       string                      `json:"eventSource"`
	MessageAttributes map[string]MessageAttribute `json:"messageAttributes,omitempty"`
	Body              string                      `json:"body"`
}

// MessageAttribute is a typed message attribute.
type MessageAttribute struct {
	StringValue string `json:"stringValue"`
	DataType    string `json:"dataType"`
}

// MessageType returns the message type attribute of the message.
func (m Message) MessageType() string {
	return m.MessageAttributes[MessageTypeAttribute].StringValue
}

// BatchResponse reports the messages that failed so only those are delivered again.
type BatchResponse struct {
	BatchItemFailures []ItemFailure `json:"batchItemFailures"`
}

// ItemFailure identifies a failed message.
type ItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// MessageType returns the message type for a resource kind task action (e.g: PolygonTask:create).
func MessageType(kind model.ResourceKind, action model.TaskAction) string {
	return fmt.Sprintf("%sTask:%s", kind.Title(), action)
}

// ParseMessageType returns the resource kind and the action of a message type.
func ParseMessageType(messageType string) (model.ResourceKind, model.TaskAction, error) {
	prefix, action, ok := strings.Cut(messageType, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid message type %q: %w", messageType, model.ErrNotValid)
	}

	kindTitle, ok := strings.CutSuffix(prefix, "Task")
	if !ok || kindTitle == "" {
		return "", "", fmt.Errorf("invalid message type %q: %w", messageType, model.ErrNotValid)
	}

	kind := model.ResourceKind(strings.ToLower(kindTitle[:1]) + kindTitle[1:])
	if err := kind.Validate(); err != nil {
		return "", "", err
	}

	return kind, model.TaskAction(action), nil
}
