package git

import (
	"context"
	"time"
)

// EmptyTreeHash is the id of the tree with no entries. It is accepted
// wherever a revision is and means "nothing".
const EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

const shortHashLen = 7

type CommitType string

const (
	CommitTypeCommit CommitType = "commit"
	CommitTypeStash  CommitType = "stash"
)

// Commit is a log entry. Stashes are listed alongside regular commits.
// Date is the author date and is for display only; history order follows
// the commit graph.
type Commit struct {
	Hash      string
	ShortHash string
	Parents   []string
	Date      time.Time
	Committed time.Time
	Message   string
	Author    string
	Type      CommitType
	Ref       string // stash@{N} for stashes
}

// StatusCode is a porcelain v1 status letter.
type StatusCode byte

const (
	StatusUnmodified StatusCode = ' '
	StatusModified   StatusCode = 'M'
	StatusAdded      StatusCode = 'A'
	StatusDeleted    StatusCode = 'D'
	StatusRenamed    StatusCode = 'R'
	StatusCopied     StatusCode = 'C'
	StatusUnmerged   StatusCode = 'U'
	StatusUntracked  StatusCode = '?'
	StatusIgnored    StatusCode = '!'
)

// StatusRow compares one path across HEAD, the index and the working tree.
// Staging is HEAD against the index, Worktree is the index against disk.
type StatusRow struct {
	Path     string
	Staging  StatusCode
	Worktree StatusCode
}

func (r StatusRow) HasChanges() bool {
	if r.Staging == StatusIgnored {
		return false
	}

	return r.Staging != StatusUnmodified || r.Worktree != StatusUnmodified
}

// Backend reads one repository. Revisions accept anything the backend can
// resolve: HEAD, full or abbreviated hashes, ref names, stash@{N} and
// EmptyTreeHash.
type Backend interface {
	// Root is the absolute path of the working tree.
	Root() string

	CurrentBranch(ctx context.Context) (string, error)
	ResolveRevision(ctx context.Context, rev string) (string, error)

	// ReadBlob returns the exact bytes of path at rev.
	ReadBlob(ctx context.Context, rev, path string) ([]byte, error)
	// ReadWorkingFile returns the bytes of path as currently on disk.
	ReadWorkingFile(ctx context.Context, path string) ([]byte, error)

	Log(ctx context.Context, depth int) ([]Commit, error)
	StatusMatrix(ctx context.Context) ([]StatusRow, error)

	// ChangedFiles lists paths that differ between from and to. An empty to
	// means the working tree, untracked files included.
	ChangedFiles(ctx context.Context, from, to string) ([]string, error)

	Close() error
}

// Opener opens a Backend for a working copy. Paths inside a working copy
// resolve to its top level.
type Opener interface {
	Open(ctx context.Context, path string) (Backend, error)
}
