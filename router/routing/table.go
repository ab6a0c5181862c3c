// Package routing is the contract between the compiler and the runtime
// router: five lookup maps describing how a deployed function's connectors
// are wired, plus its destinations and free-form block properties. The
// compiler writes one Table per function as JSON; the router reads it once
// at start-up and never mutates it.
package routing

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultKey names the entry used when a sender does not pick an output.
const DefaultKey = "default"

// OutputKind is what an output connector is wired to.
type OutputKind string

const (
	KindFunction OutputKind = "function"
	KindQueue    OutputKind = "queue"
	KindResponse OutputKind = "response"
)

// Table is the routing contract of one function.
type Table struct {
	// Inputs maps an input key to the receiving input connector id. Keys are
	// the HTTP path, the schedule rule name, websocket route keys, or the
	// sender's output connector id for function and queue deliveries.
	Inputs map[string]string `json:"inputConnections"`
	// OutputKinds maps an output connector id to its target kind, with a
	// DefaultKey entry for the first wired output.
	OutputKinds map[string]OutputKind `json:"outputTypes"`
	// OutputNames maps PascalCase output names to connector ids, with a
	// DefaultKey entry for the first declared output.
	OutputNames map[string]string `json:"outputNameToId"`
	// InputSynchronous marks input connectors fed by synchronous triggers.
	InputSynchronous map[string]bool `json:"inputSynchronous"`
	// OutputResponse marks output connectors wired to a response block.
	OutputResponse map[string]bool `json:"outputResponse"`
	// Destinations maps output connector ids to the environment variable
	// holding the target function name or queue url.
	Destinations map[string]string `json:"destinations,omitempty"`
	// Properties are per-block overrides authored next to the block source.
	Properties map[string]any `json:"blockProperties,omitempty"`
}

// New returns a table with every map allocated.
func New() *Table {
	return &Table{
		Inputs:           map[string]string{},
		OutputKinds:      map[string]OutputKind{},
		OutputNames:      map[string]string{},
		InputSynchronous: map[string]bool{},
		OutputResponse:   map[string]bool{},
		Destinations:     map[string]string{},
		Properties:       map[string]any{},
	}
}

// ResolveOutput turns an output name, connector id or empty string into a
// connector id. The second result is false when nothing matches.
func (t *Table) ResolveOutput(name string) (string, bool) {
	if name == "" {
		name = DefaultKey
	}
	if id, ok := t.OutputNames[name]; ok {
		return id, true
	}
	for _, id := range t.OutputNames {
		if id == name {
			return id, true
		}
	}
	return "", false
}

// ResolveInput maps an input key to a connector id, falling back to the key.
func (t *Table) ResolveInput(key string) string {
	if id, ok := t.Inputs[key]; ok {
		return id
	}
	return key
}

// Marshal encodes the table as indented JSON.
func (t *Table) Marshal() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Parse decodes a table and allocates any missing maps.
func Parse(data []byte) (*Table, error) {
	t := New()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse routing table: %w", err)
	}
	t.fill()
	return t, nil
}

// Load reads and parses a routing table file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing table: %w", err)
	}
	return Parse(data)
}

func (t *Table) fill() {
	if t.Inputs == nil {
		t.Inputs = map[string]string{}
	}
	if t.OutputKinds == nil {
		t.OutputKinds = map[string]OutputKind{}
	}
	if t.OutputNames == nil {
		t.OutputNames = map[string]string{}
	}
	if t.InputSynchronous == nil {
		t.InputSynchronous = map[string]bool{}
	}
	if t.OutputResponse == nil {
		t.OutputResponse = map[string]bool{}
	}
	if t.Destinations == nil {
		t.Destinations = map[string]string{}
	}
	if t.Properties == nil {
		t.Properties = map[string]any{}
	}
}
