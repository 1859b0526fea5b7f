package repos

import (
	"time"

	"github.com/google/uuid"
)

type RepositoryDraft struct {
	// Path to any directory inside the working copy
	Path string
	// Name defaults to the directory name
	Name string
	// PollInterval defaults to the configured interval
	PollInterval time.Duration
}

// RepositoryUpdate changes the fields that are set.
type RepositoryUpdate struct {
	Name         *string
	PollInterval *time.Duration
}

type Repository struct {
	ID           uuid.UUID
	Name         string
	Path         string
	PollInterval time.Duration
	Position     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RepositoryID derives the stable id of a working copy from its canonical
// path, so registering the same directory twice yields the same id.
func RepositoryID(path string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path))
}
