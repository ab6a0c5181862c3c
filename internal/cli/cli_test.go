package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/blockgrid/internal/app"
)

func TestParse(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name        string
		args        []string
		wantPath    string
		wantCommand string
		wantRegion  string
	}{
		{"defaults", nil, ".", app.CommandGenerateLib, "eu-central-1"},
		{"positional", []string{dir, "aws", "deploy"}, dir, app.CommandDeploy, "eu-central-1"},
		{"flags win over positional", []string{"-project", dir, "-command", "deploy", "-region", "us-west-2", "other"}, dir, app.CommandDeploy, "us-west-2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("AWS_REGION", "eu-central-1")

			cfg, exit, err := Parse(tc.args, &bytes.Buffer{})
			require.NoError(t, err)
			require.False(t, exit)

			wantPath, _ := filepath.Abs(tc.wantPath)
			assert.Equal(t, wantPath, cfg.ProjectPath)
			assert.Equal(t, app.RuntimeAWS, cfg.Runtime)
			assert.Equal(t, tc.wantCommand, cfg.Command)
			assert.Equal(t, tc.wantRegion, cfg.Region)
			assert.Equal(t, "info", cfg.LogLevel)
		})
	}
}

func TestParse_DefaultRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	cfg, _, err := Parse(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, cfg.Region)
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"-nope"}, "flag provided but not defined"},
		{"bad log format", []string{"-log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "loud"}, "invalid log-level"},
		{"unknown runtime", []string{".", "local"}, "unknown runtime"},
		{"unknown command", []string{".", "aws", "generate-block"}, "unknown command"},
		{"too many arguments", []string{".", "aws", "deploy", "extra"}, "too many arguments"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
