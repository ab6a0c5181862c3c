// Package naming derives deterministic, length-bounded identifiers for cloud
// resources. A full function name is built from four prefix-truncated
// segments (project id, project name, deploy id, block id) and never exceeds
// MaxLength. Truncation does not hash, so two long ids sharing a prefix can
// map to the same name; callers accept that.
package naming

import (
	"regexp"
	"strings"
)

// Segment budgets. 4 + 1 + 20 + 1 + 25 + 13 = 64.
const (
	PrefixBudget      = 4
	ProjectNameBudget = 20
	DeployIDBudget    = 25
	BlockIDBudget     = 13

	// MaxLength is the function name limit of the target platform.
	MaxLength = 64
)

var idStrip = regexp.MustCompile(`[-\s]`)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// SanitizeProjectName lowercases, removes spaces and truncates.
func SanitizeProjectName(name string) string {
	return truncate(strings.ReplaceAll(strings.ToLower(name), " ", ""), ProjectNameBudget)
}

// SanitizeDeployID removes hyphens and whitespace and truncates.
func SanitizeDeployID(id string) string {
	return truncate(idStrip.ReplaceAllString(id, ""), DeployIDBudget)
}

// SanitizeBlockID removes hyphens and whitespace and truncates.
func SanitizeBlockID(id string) string {
	return truncate(idStrip.ReplaceAllString(id, ""), BlockIDBudget)
}

// Prefix is `<projectId[:4]>-<projectName>`, or only the id part when the
// name is empty.
func Prefix(projectID, projectName string) string {
	idPrefix := truncate(projectID, PrefixBudget)
	if projectName == "" {
		return idPrefix
	}
	return idPrefix + "-" + SanitizeProjectName(projectName)
}

// FunctionName is the per-block part of a function's name.
func FunctionName(deployID, blockID string) string {
	return SanitizeDeployID(deployID) + SanitizeBlockID(blockID)
}

// BlockName is the per-block part of a non-function resource name.
func BlockName(kind, blockID string) string {
	return kind + SanitizeBlockID(blockID)
}

// Namer binds the project prefix.
type Namer struct {
	prefix string
}

// New creates a Namer for a project.
func New(projectID, projectName string) Namer {
	return Namer{prefix: Prefix(projectID, projectName)}
}

// Prefix returns the project prefix.
func (n Namer) Prefix() string { return n.prefix }

// Function returns the full function name, `<prefix>-<deployId><blockId>`.
func (n Namer) Function(deployID, blockID string) string {
	return n.prefix + "-" + FunctionName(deployID, blockID)
}

// Block returns `<prefix>-<kind><blockId>`.
func (n Namer) Block(kind, blockID string) string {
	return n.prefix + "-" + BlockName(kind, blockID)
}

// Scoped returns `<prefix>-<suffix>`.
func (n Namer) Scoped(suffix string) string {
	return n.prefix + "-" + suffix
}

var envInvalid = regexp.MustCompile(`[^A-Za-z0-9_]`)

// EnvVar turns a connector id into an environment variable name.
func EnvVar(connectorID string) string {
	return envInvalid.ReplaceAllString(connectorID, "_")
}

var (
	wordSplit   = regexp.MustCompile(`[\s_]+`)
	nonAlnumRun = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// PascalCase turns an output name such as "user created" or "user_created"
// into "UserCreated".
func PascalCase(s string) string {
	var sb strings.Builder
	for _, word := range wordSplit.Split(s, -1) {
		clean := nonAlnumRun.ReplaceAllString(word, "")
		if clean == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(clean[:1]))
		sb.WriteString(clean[1:])
	}
	return sb.String()
}

// StatementIDLimit is the longest permission statement id the platform accepts.
const StatementIDLimit = 100

// StatementID truncates a permission statement id to the platform limit.
func StatementID(s string) string {
	return truncate(s, StatementIDLimit)
}
