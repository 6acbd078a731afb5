package queue

import (
	"encoding/json"
	"fmt"

	"github.com/slok/geotask/internal/model"
)

// batchJSON is the wire format of a task batch.
type batchJSON struct {
	TaskID          string                `json:"taskId"`
	Type            model.TaskAction      `json:"type"`
	SecurityContext model.SecurityContext `json:"securityContext"`
	Items           []json.RawMessage     `json:"items"`
}

// Codec encodes and decodes the task batches of a resource kind.
type Codec struct {
	kind model.ResourceKind
}

// NewCodec returns a new codec for the resource kind.
func NewCodec(kind model.ResourceKind) (*Codec, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	return &Codec{kind: kind}, nil
}

// Decode decodes a task batch. Create items reference their parent with the parent field of
// the kind (e.g: regionId) and update items reference the resource with `id`. Items of
// unknown actions are decoded as untyped items and malformed items as invalid items, so
// they can still be reported. Only a malformed batch fails.
func (c *Codec) Decode(body []byte) (model.TaskBatch, error) {
	var b batchJSON
	if err := json.Unmarshal(body, &b); err != nil {
		return model.TaskBatch{}, fmt.Errorf("could not decode task batch: %w", err)
	}

	if b.TaskID == "" {
		return model.TaskBatch{}, fmt.Errorf("taskId is required: %w", model.ErrNotValid)
	}

	items := make([]model.WorkItem, 0, len(b.Items))
	for _, raw := range b.Items {
		items = append(items, c.decodeItem(b.Type, raw))
	}

	return model.TaskBatch{
		TaskID:          b.TaskID,
		Kind:            c.kind,
		Action:          b.Type,
		SecurityContext: b.SecurityContext,
		Items:           items,
	}, nil
}

func (c *Codec) decodeItem(action model.TaskAction, raw json.RawMessage) model.WorkItem {
	item, err := c.decodeTypedItem(action, raw)
	if err != nil {
		var named struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(raw, &named)
		return model.InvalidItem{
			Name: named.Name,
			Err:  fmt.Errorf("could not decode item: %w: %w", err, model.ErrNotValid),
		}
	}
	return item
}

func (c *Codec) decodeTypedItem(action model.TaskAction, raw json.RawMessage) (model.WorkItem, error) {
	var fields model.ResourceFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	var refs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, err
	}

	switch action {
	case model.TaskActionCreate:
		parentID, err := stringRef(refs, c.kind.ParentField())
		if err != nil {
			return nil, err
		}
		return model.CreateItem{ParentID: parentID, Fields: fields}, nil
	case model.TaskActionUpdate:
		id, err := stringRef(refs, "id")
		if err != nil {
			return nil, err
		}
		return model.UpdateItem{ID: id, Fields: fields}, nil
	default:
		return model.UntypedItem{Fields: fields}, nil
	}
}

func stringRef(refs map[string]json.RawMessage, key string) (string, error) {
	raw, ok := refs[key]
	if !ok {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// Encode encodes a task batch in the same format Decode reads.
func (c *Codec) Encode(batch model.TaskBatch) ([]byte, error) {
	items := make([]json.RawMessage, 0, len(batch.Items))
	for i, item := range batch.Items {
		raw, err := c.encodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("could not encode item %d: %w", i, err)
		}
		items = append(items, raw)
	}

	return json.Marshal(batchJSON{
		TaskID:          batch.TaskID,
		Type:            batch.Action,
		SecurityContext: batch.SecurityContext,
		Items:           items,
	})
}

func (c *Codec) encodeItem(item model.WorkItem) (json.RawMessage, error) {
	var (
		fields   model.ResourceFields
		refKey   string
		refValue string
	)
	switch it := item.(type) {
	case model.CreateItem:
		fields, refKey, refValue = it.Fields, c.kind.ParentField(), it.ParentID
	case model.UpdateItem:
		fields, refKey, refValue = it.Fields, "id", it.ID
	case model.UntypedItem:
		fields = it.Fields
	case model.InvalidItem:
		return nil, it.Err
	default:
		return nil, fmt.Errorf("unknown item type %T: %w", item, model.ErrNotValid)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if refKey == "" {
		return raw, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	ref, err := json.Marshal(refValue)
	if err != nil {
		return nil, err
	}
	obj[refKey] = ref

	return json.Marshal(obj)
}

// DecodeItems decodes a JSON list of items of an action, using the same item format as the batches.
// Unlike Decode, any malformed item fails.
func (c *Codec) DecodeItems(action model.TaskAction, body []byte) ([]model.WorkItem, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("could not decode items: %w", err)
	}

	items := make([]model.WorkItem, 0, len(raws))
	for i, raw := range raws {
		item := c.decodeItem(action, raw)
		if invalid, ok := item.(model.InvalidItem); ok {
			return nil, fmt.Errorf("item %d: %w", i, invalid.Err)
		}
		items = append(items, item)
	}

	return items, nil
}
