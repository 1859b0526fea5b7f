package repos

import "errors"

var (
	ErrNotFound          = errors.New("repository not found")
	ErrAlreadyRegistered = errors.New("repository already registered")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNotAGitRepository = errors.New("not a git repository")
	ErrInvalidOrder      = errors.New("order must list every repository exactly once")
	ErrInvalidInput      = errors.New("invalid input")
)
