package git

import "time"

type BackendKind string

const (
	BackendExec     BackendKind = "exec"
	BackendEmbedded BackendKind = "embedded"
)

type Config struct {
	Backend BackendKind

	// Binary and Timeout apply to the exec backend.
	Binary  string
	Timeout time.Duration

	// Exclude lists directory names skipped in the working tree. ".git" is
	// always skipped.
	Exclude []string
}

// DefaultExclude are dependency and build output directories that are never
// worth scanning.
func DefaultExclude() []string {
	return []string{
		".git",
		"node_modules",
		"vendor",
		"dist",
		"build",
		"target",
		".next",
		".venv",
		"__pycache__",
	}
}
