package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProject = `{
  "project": {"projectName": "Shop API", "projectId": "a1b2c3d4", "includeVpc": true},
  "blocks": [
    {"type": "apiTrigger", "id": "api1", "deployId": "d-api", "title": "Get items",
     "outputs": [{"id": "api1_out", "name": "out"}],
     "properties": {"isSynchronous": true, "path": "/items", "method": "get"}},
    {"type": "function", "id": "fn1", "deployId": "d-fn", "title": "List Items", "status": "published",
     "inputs": [{"id": "fn1_in", "name": "in"}],
     "outputs": [{"id": "fn1_out", "name": "result"}],
     "properties": {"language": "go", "lambda": {"lambdaMemory": 256, "deployAsDockerImage": true}}},
    {"type": "note", "id": "n1", "title": "just a note"}
  ],
  "connections": [
    {"id": "c1", "fromBlockId": "api1", "fromConnectorId": "api1_out", "toBlockId": "fn1", "toConnectorId": "fn1_in"},
    {"id": "c2", "fromBlockId": "fn1", "fromConnectorId": "fn1_out", "toBlockId": "fn2", "toConnectorId": "fn2_in",
     "connectionType": "queue", "properties": {"batchSize": 5}}
  ]
}`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sampleProject))
	require.NoError(t, err)

	assert.Equal(t, Settings{Name: "Shop API", ID: "a1b2c3d4", IncludeVPC: true}, p.Settings)
	require.Len(t, p.Blocks, 3)

	api, ok := p.Blocks[0].(*APITrigger)
	require.True(t, ok)
	assert.Equal(t, "GET", api.MethodOrDefault())
	assert.True(t, api.Properties.IsSynchronous)
	assert.Equal(t, "/items", api.Properties.Path)

	fn, ok := p.Blocks[1].(*Function)
	require.True(t, ok)
	assert.Equal(t, StatusPublished, fn.Status)
	assert.Equal(t, 256, fn.LambdaOrZero().Memory)
	assert.True(t, fn.LambdaOrZero().DeployAsDockerImage)
	assert.True(t, fn.HasInput("fn1_in"))
	assert.False(t, fn.HasOutput("fn1_in"))

	assert.Equal(t, KindNote, p.Blocks[2].Kind())

	require.Len(t, p.Connections, 2)
	assert.Equal(t, ConnectionRegular, p.Connections[0].Kind)
	assert.True(t, p.Connections[1].IsQueue())
	assert.Equal(t, 5, p.Connections[1].BatchSize())
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse([]byte(`{"blocks": [{"type": "teleporter", "id": "x"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBlockKind)
}

func TestFunctionDeployable(t *testing.T) {
	in := []Connector{{ID: "in"}}
	testCases := []struct {
		name string
		fn   Function
		want bool
	}{
		{"published with input", Function{Meta: Meta{Inputs: in}, Status: StatusPublished}, true},
		{"no status", Function{Meta: Meta{Inputs: in}}, true},
		{"new", Function{Meta: Meta{Inputs: in}, Status: StatusNew}, false},
		{"skip deploy", Function{Meta: Meta{Inputs: in}, Properties: FunctionProperties{SkipDeploy: true}}, false},
		{"no inputs", Function{Status: StatusPublished}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.fn.Deployable())
		})
	}
}

func TestDefaults(t *testing.T) {
	ws := &WSTrigger{}
	assert.Equal(t, "WS_URL", ws.EnvName())
	ws.Properties.URLEnvName = "chat_url"
	assert.Equal(t, "CHAT_URL", ws.EnvName())

	s := &ScheduleTrigger{}
	assert.True(t, s.IsEnabled())
	off := false
	s.Properties.Enabled = &off
	assert.False(t, s.IsEnabled())
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "list_items-fn1", FolderName("List  Items", "fn1"))
	assert.Equal(t, "worker-abc", FolderName("Worker", "abc"))
}
