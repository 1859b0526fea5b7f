package poller

import (
	"context"

	"github.com/chigichan24/duff/internal/changes"
	"github.com/chigichan24/duff/internal/repos"
	"github.com/google/uuid"
)

type RepositoryLister interface {
	List(ctx context.Context) ([]repos.Repository, error)
}

type StatusReader interface {
	Status(ctx context.Context, id uuid.UUID) (changes.RepoStatus, error)
}
