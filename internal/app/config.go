package app

import (
	"errors"
	"fmt"
)

// Commands understood by App.Run.
const (
	CommandGenerateLib = "generate-lib"
	CommandDeploy      = "deploy"
)

// RuntimeAWS is the only supported deploy target.
const RuntimeAWS = "aws"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectPath string // holds project.json and blocks/
	Runtime     string
	Command     string
	Region      string
	HomeDir     string // parent of .blockgrid/<projectId>/.env

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectPath == "" {
		return nil, errors.New("ProjectPath is a required configuration field and cannot be empty")
	}
	if cfg.Runtime != RuntimeAWS {
		return nil, fmt.Errorf("unknown runtime: %q", cfg.Runtime)
	}
	switch cfg.Command {
	case CommandGenerateLib, CommandDeploy:
	default:
		return nil, fmt.Errorf("unknown command: %q", cfg.Command)
	}
	if cfg.Command == CommandDeploy && cfg.Region == "" {
		return nil, errors.New("a region is required for deploy")
	}
	return &cfg, nil
}
