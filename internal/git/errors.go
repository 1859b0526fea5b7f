package git

import "errors"

var (
	ErrNotARepository   = errors.New("not a git repository")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrInvalidRevision  = errors.New("invalid revision")
	ErrFileNotFound     = errors.New("file not found")
	ErrToolFailure      = errors.New("git operation failed")
	ErrUnknownBackend   = errors.New("unknown git backend")
)
