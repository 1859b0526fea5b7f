package changes

import (
	"context"
	"time"

	"github.com/chigichan24/duff/internal/revrange"
	"github.com/google/uuid"
)

// RepoStatus is recomputed on every call and never stored.
type RepoStatus struct {
	Branch        string
	ModifiedFiles []string
	HasChanges    bool
	LastUpdate    time.Time
}

type Content struct {
	Data     []byte
	MIMEType string
}

// SelectionResult is a selection after a click, with the range it resolves
// to and the files that range touches.
type SelectionResult struct {
	Selection revrange.Selection
	Range     revrange.Range
	Files     []string
}

// Registry finds the working copy of a registered repository.
type Registry interface {
	Path(ctx context.Context, id uuid.UUID) (string, error)
}
