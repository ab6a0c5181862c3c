package project

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownBlockKind is returned when a block carries a type tag this
// package does not model.
var ErrUnknownBlockKind = errors.New("unknown block kind")

// ConnectionKind distinguishes plain wiring from queue-buffered wiring.
type ConnectionKind string

const (
	ConnectionRegular ConnectionKind = "regular"
	ConnectionQueue   ConnectionKind = "queue"
)

// QueueOverrides are optional settings carried by queue-kind connections.
type QueueOverrides struct {
	Fifo                   *bool `json:"fifo,omitempty"`
	VisibilityTimeout      int   `json:"visibilityTimeout,omitempty"`
	MessageRetentionPeriod int   `json:"messageRetentionPeriod,omitempty"`
	DelaySeconds           int   `json:"delaySeconds,omitempty"`
	BatchSize              int   `json:"batchSize,omitempty"`
}

// Connection is a directed edge between an output and an input connector.
type Connection struct {
	ID              string          `json:"id"`
	FromBlockID     string          `json:"fromBlockId"`
	FromConnectorID string          `json:"fromConnectorId"`
	ToBlockID       string          `json:"toBlockId"`
	ToConnectorID   string          `json:"toConnectorId"`
	Kind            ConnectionKind  `json:"connectionType,omitempty"`
	Queue           *QueueOverrides `json:"properties,omitempty"`
}

// IsQueue reports whether the connection asks for queue buffering.
func (c Connection) IsQueue() bool { return c.Kind == ConnectionQueue }

// BatchSize returns the override batch size or zero.
func (c Connection) BatchSize() int {
	if c.Queue == nil {
		return 0
	}
	return c.Queue.BatchSize
}

// Settings are project-wide flags.
type Settings struct {
	Name           string `json:"projectName"`
	ID             string `json:"projectId"`
	IncludeVPC     bool   `json:"includeVpc"`
	IncludeFixedIP bool   `json:"includeFixedIp"`
}

// Project is the whole user graph.
type Project struct {
	Settings    Settings
	Blocks      []Block
	Connections []Connection
}

// Index maps block ids to blocks.
func Index(blocks []Block) map[string]Block {
	idx := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		idx[b.Common().ID] = b
	}
	return idx
}

type projectDoc struct {
	Settings    Settings          `json:"project"`
	Blocks      []json.RawMessage `json:"blocks"`
	Connections []Connection      `json:"connections"`
}

type blockDoc struct {
	Meta
	Type       Kind            `json:"type"`
	Status     string          `json:"status"`
	Properties json.RawMessage `json:"properties"`
}

// UnmarshalJSON decodes project.json.
func (p *Project) UnmarshalJSON(data []byte) error {
	var doc projectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	blocks := make([]Block, 0, len(doc.Blocks))
	for i, raw := range doc.Blocks {
		b, err := DecodeBlock(raw)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	for i := range doc.Connections {
		if doc.Connections[i].Kind == "" {
			doc.Connections[i].Kind = ConnectionRegular
		}
	}
	p.Settings = doc.Settings
	p.Blocks = blocks
	p.Connections = doc.Connections
	return nil
}

// Parse decodes a project document.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	return &p, nil
}

// DecodeBlock decodes a single tagged block.
func DecodeBlock(data []byte) (Block, error) {
	var doc blockDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	props := func(v any) error {
		if len(doc.Properties) == 0 || string(doc.Properties) == "null" {
			return nil
		}
		if err := json.Unmarshal(doc.Properties, v); err != nil {
			return fmt.Errorf("%s %q properties: %w", doc.Type, doc.ID, err)
		}
		return nil
	}

	switch doc.Type {
	case KindFunction:
		b := &Function{Meta: doc.Meta, Status: FunctionStatus(doc.Status)}
		return b, props(&b.Properties)
	case KindAPITrigger:
		b := &APITrigger{Meta: doc.Meta}
		return b, props(&b.Properties)
	case KindWSTrigger:
		b := &WSTrigger{Meta: doc.Meta}
		return b, props(&b.Properties)
	case KindScheduleTrigger:
		b := &ScheduleTrigger{Meta: doc.Meta, Status: doc.Status}
		return b, props(&b.Properties)
	case KindQueue:
		b := &Queue{Meta: doc.Meta, Status: doc.Status}
		return b, props(&b.Properties)
	case KindResponse:
		return &Response{Meta: doc.Meta}, nil
	case KindNote:
		return &Note{Meta: doc.Meta}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockKind, doc.Type)
	}
}
