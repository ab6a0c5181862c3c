package project

import (
	"regexp"
	"strings"
)

// Kind is the tag carried by every block in project.json.
type Kind string

const (
	KindFunction        Kind = "function"
	KindAPITrigger      Kind = "apiTrigger"
	KindWSTrigger       Kind = "wsTrigger"
	KindScheduleTrigger Kind = "scheduleTrigger"
	KindQueue           Kind = "queue"
	KindResponse        Kind = "response"
	KindNote            Kind = "note"
)

// Connector is a named attachment point on a block.
type Connector struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Meta holds the fields shared by every block kind.
type Meta struct {
	ID       string      `json:"id"`
	DeployID string      `json:"deployId"`
	Title    string      `json:"title"`
	Inputs   []Connector `json:"inputs"`
	Outputs  []Connector `json:"outputs"`
}

// Block is one node of the user graph.
type Block interface {
	Kind() Kind
	Common() *Meta
	sealed()
}

// Common returns the shared block fields.
func (m *Meta) Common() *Meta { return m }

func (m *Meta) sealed() {}

// HasInput reports whether the block declares an input connector with the given id.
func (m *Meta) HasInput(id string) bool { return hasConnector(m.Inputs, id) }

// HasOutput reports whether the block declares an output connector with the given id.
func (m *Meta) HasOutput(id string) bool { return hasConnector(m.Outputs, id) }

func hasConnector(cs []Connector, id string) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// FunctionStatus is the publication state of a function block.
type FunctionStatus string

const (
	StatusNew         FunctionStatus = "new"
	StatusUnpublished FunctionStatus = "unpublished"
	StatusPublished   FunctionStatus = "published"
)

// LambdaProperties tunes the deployed function.
type LambdaProperties struct {
	Runtime             string `json:"lambdaRuntime,omitempty"`
	Memory              int    `json:"lambdaMemory,omitempty"`
	Timeout             int    `json:"lambdaTimeout,omitempty"`
	EphemeralStorage    int    `json:"lambdaEphemeralStorage,omitempty"`
	Architecture        string `json:"lambdaArchitecture,omitempty"`
	ReservedConcurrency *int   `json:"lambdaReservedConcurrentExecutions,omitempty"`
	DeployAsDockerImage bool   `json:"deployAsDockerImage,omitempty"`
}

// FunctionProperties are the kind-specific settings of a function block.
type FunctionProperties struct {
	Language        string            `json:"language,omitempty"`
	LanguageVersion string            `json:"languageVersion,omitempty"`
	SkipDeploy      bool              `json:"skipDeploy,omitempty"`
	DependsOn       []string          `json:"dependsOn,omitempty"`
	Lambda          *LambdaProperties `json:"lambda,omitempty"`
}

// Function is a block backed by user code.
type Function struct {
	Meta
	Status     FunctionStatus
	Properties FunctionProperties
}

func (*Function) Kind() Kind { return KindFunction }

// Deployable reports whether the function takes part in compilation. New
// functions, skip-flagged functions and functions without inputs are left out.
func (f *Function) Deployable() bool {
	return f.Status != StatusNew && !f.Properties.SkipDeploy && len(f.Inputs) > 0
}

// LambdaOrZero returns the lambda settings, never nil.
func (f *Function) LambdaOrZero() LambdaProperties {
	if f.Properties.Lambda == nil {
		return LambdaProperties{}
	}
	return *f.Properties.Lambda
}

// APITriggerProperties configure an HTTP route.
type APITriggerProperties struct {
	IsSynchronous bool   `json:"isSynchronous"`
	Path          string `json:"path"`
	Method        string `json:"method,omitempty"`
}

// APITrigger exposes connected functions over the shared HTTP gateway.
type APITrigger struct {
	Meta
	Properties APITriggerProperties
}

func (*APITrigger) Kind() Kind { return KindAPITrigger }

// MethodOrDefault returns the HTTP method, GET when unset.
func (a *APITrigger) MethodOrDefault() string {
	if a.Properties.Method == "" {
		return "GET"
	}
	return strings.ToUpper(a.Properties.Method)
}

// WSTriggerProperties configure the websocket trigger.
type WSTriggerProperties struct {
	URLEnvName string `json:"wsUrlEnvName,omitempty"`
}

// WSTrigger exposes connected functions over the shared websocket gateway.
type WSTrigger struct {
	Meta
	Properties WSTriggerProperties
}

func (*WSTrigger) Kind() Kind { return KindWSTrigger }

// EnvName is the environment variable that receives the websocket URL in
// functions depending on this trigger.
func (w *WSTrigger) EnvName() string {
	if w.Properties.URLEnvName == "" {
		return "WS_URL"
	}
	return strings.ToUpper(w.Properties.URLEnvName)
}

// ScheduleProperties configure a scheduled trigger.
type ScheduleProperties struct {
	Schedule string `json:"schedule"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// ScheduleTrigger invokes connected functions on a schedule.
type ScheduleTrigger struct {
	Meta
	Status     string
	Properties ScheduleProperties
}

func (*ScheduleTrigger) Kind() Kind { return KindScheduleTrigger }

// IsEnabled defaults to true when the flag is absent.
func (s *ScheduleTrigger) IsEnabled() bool {
	return s.Properties.Enabled == nil || *s.Properties.Enabled
}

// QueueProperties configure a managed queue.
type QueueProperties struct {
	Fifo                   bool `json:"fifo"`
	VisibilityTimeout      int  `json:"visibilityTimeout"`
	MessageRetentionPeriod int  `json:"messageRetentionPeriod"`
	DelaySeconds           int  `json:"delaySeconds"`
	BatchSize              int  `json:"batchSize,omitempty"`
}

// Queue buffers messages between functions.
type Queue struct {
	Meta
	Status     string
	Properties QueueProperties
}

func (*Queue) Kind() Kind { return KindQueue }

// Response terminates a synchronous flow.
type Response struct {
	Meta
}

func (*Response) Kind() Kind { return KindResponse }

// Note is documentation on the canvas and never compiles to anything.
type Note struct {
	Meta
}

func (*Note) Kind() Kind { return KindNote }

var whitespaceRun = regexp.MustCompile(`\s+`)

// FolderName is the directory name holding a block's sources.
func FolderName(title, blockID string) string {
	normalized := whitespaceRun.ReplaceAllString(strings.ToLower(title), "_")
	return normalized + "-" + blockID
}
