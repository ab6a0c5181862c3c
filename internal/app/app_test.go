package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProject = `{
  "project": {"projectName": "Demo", "projectId": "p123"},
  "blocks": [
    {"type": "scheduleTrigger", "id": "s1", "title": "Tick", "outputs": [{"id": "s_out", "name": "out"}],
     "properties": {"schedule": "rate(5 minutes)"}},
    {"type": "function", "id": "f1", "deployId": "d1", "title": "Worker", "status": "published",
     "inputs": [{"id": "f_in", "name": "in"}]}
  ],
  "connections": [
    {"id": "c1", "fromBlockId": "s1", "fromConnectorId": "s_out", "toBlockId": "f1", "toConnectorId": "f_in"}
  ]
}`

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid deploy", Config{ProjectPath: ".", Runtime: RuntimeAWS, Command: CommandDeploy, Region: "eu-west-1"}, ""},
		{"valid lib without region", Config{ProjectPath: ".", Runtime: RuntimeAWS, Command: CommandGenerateLib}, ""},
		{"missing path", Config{Runtime: RuntimeAWS, Command: CommandDeploy}, "ProjectPath"},
		{"unknown runtime", Config{ProjectPath: ".", Runtime: "local", Command: CommandDeploy}, "unknown runtime"},
		{"unknown command", Config{ProjectPath: ".", Runtime: RuntimeAWS, Command: "generate-block"}, "unknown command"},
		{"deploy without region", Config{ProjectPath: ".", Runtime: RuntimeAWS, Command: CommandDeploy}, "region"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg, *cfg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestRun_Deploy(t *testing.T) {
	dir := t.TempDir()
	disk := WriteProjectFixture(t, dir, sampleProject)
	require.NoError(t, disk.WriteFile("home/.blockgrid/p123/.env", []byte("TOKEN=abc\n")))

	testApp, logs := SetupAppTest(t, &Config{
		ProjectPath: dir,
		Runtime:     RuntimeAWS,
		Command:     CommandDeploy,
		Region:      "eu-west-1",
		HomeDir:     disk.Join(dir, "home"),
		LogFormat:   "text",
	})

	require.NoError(t, testApp.Run(context.Background()))

	tf, err := disk.ReadFile("deploy/aws/terraform.tf")
	require.NoError(t, err)
	assert.Contains(t, string(tf), `schedule_expression = "rate(5 minutes)"`)
	assert.Contains(t, string(tf), `TOKEN = "abc"`)
	assert.Contains(t, logs.String(), "[100%] Deploy code generated successfully")
}

func TestRun_GenerateLib(t *testing.T) {
	dir := t.TempDir()
	disk := WriteProjectFixture(t, dir, sampleProject)

	testApp, _ := SetupAppTest(t, &Config{ProjectPath: dir, Runtime: RuntimeAWS, Command: CommandGenerateLib})
	require.NoError(t, testApp.Run(context.Background()))

	ok, err := disk.Exists("blocks/worker-f1/_lib/routing.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_MissingProject(t *testing.T) {
	testApp, _ := SetupAppTest(t, &Config{ProjectPath: t.TempDir(), Runtime: RuntimeAWS, Command: CommandGenerateLib})
	assert.ErrorContains(t, testApp.Run(context.Background()), "failed to read project")
}
