package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/blockgrid/internal/app"
)

// DefaultRegion is used when neither -region nor AWS_REGION is set.
const DefaultRegion = "us-east-1"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Positional arguments mirror the flags: [PROJECT_PATH [RUNTIME [COMMAND]]].
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("blockgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
blockgrid - compiles a block graph into Terraform and per-function routing tables.

Usage:
  blockgrid [options] [PROJECT_PATH [RUNTIME [COMMAND]]]

Arguments:
  PROJECT_PATH  Directory holding project.json and blocks/ (default: current directory).
  RUNTIME       Deploy target. Only 'aws' is supported.
  COMMAND       'generate-lib' (default) or 'deploy'.

Options:
`)
		flagSet.PrintDefaults()
	}

	projectFlag := flagSet.String("project", "", "Path to the project directory.")
	runtimeFlag := flagSet.String("runtime", "", "Deploy target runtime (default 'aws').")
	commandFlag := flagSet.String("command", "", "Command to run: 'generate-lib' or 'deploy'.")
	regionFlag := flagSet.String("region", "", "AWS region (default $AWS_REGION or "+DefaultRegion+").")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")
	if flagSet.NArg() > 3 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("too many arguments: %v", flagSet.Args())}
	}

	path := firstOf(*projectFlag, flagSet.Arg(0), ".")
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	runtime := strings.ToLower(firstOf(*runtimeFlag, flagSet.Arg(1), app.RuntimeAWS))
	command := strings.ToLower(firstOf(*commandFlag, flagSet.Arg(2), app.CommandGenerateLib))
	region := firstOf(*regionFlag, os.Getenv("AWS_REGION"), DefaultRegion)
	slog.Debug("Project path determined.", "path", absPath, "runtime", runtime, "command", command)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("No home directory, project env will not be loaded.", "error", err)
	}

	config, err := app.NewConfig(app.Config{
		ProjectPath: absPath,
		Runtime:     runtime,
		Command:     command,
		Region:      region,
		HomeDir:     home,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
