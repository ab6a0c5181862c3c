package compiler

import "errors"

var (
	// ErrConfigurationPrecondition reports project settings or block flags
	// that need infrastructure the project does not have.
	ErrConfigurationPrecondition = errors.New("configuration precondition failed")

	// ErrEnvironmentBinding reports an environment injection whose target
	// function or gateway does not exist.
	ErrEnvironmentBinding = errors.New("environment binding failed")
)
