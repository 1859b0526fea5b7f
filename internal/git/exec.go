package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/chigichan24/duff/internal/fsa"
	"go.uber.org/zap"
)

const (
	fieldSep  = "\x00"
	recordSep = "\x1e"
	logFormat = "%H%x00%h%x00%P%x00%an%x00%aI%x00%cI%x00%s%x1e"
	// stash entries carry their reflog selector before the subject.
	stashFormat = "%H%x00%h%x00%P%x00%an%x00%aI%x00%cI%x00%gd%x00%s%x1e"
)

// ExecOpener opens backends that shell out to the git binary.
type ExecOpener struct {
	runner  Runner
	exclude []string
	logger  *zap.Logger
}

func NewExecOpener(runner Runner, exclude []string, logger *zap.Logger) *ExecOpener {
	return &ExecOpener{
		runner:  runner,
		exclude: exclude,
		logger:  logger,
	}
}

// Open implements Opener.
func (o *ExecOpener) Open(ctx context.Context, path string) (Backend, error) {
	out, err := o.runner.Run(ctx, path, "rev-parse", "--is-bare-repository", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotARepository, path, err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 || lines[0] != "false" {
		return nil, fmt.Errorf("%w: %s has no working tree", ErrNotARepository, path)
	}

	root := filepath.Clean(strings.TrimSpace(lines[1]))
	handle, err := fsa.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open working tree: %w", err)
	}

	o.logger.Debug("repository opened", zap.String("root", root), zap.String("backend", string(BackendExec)))

	return &execBackend{
		runner:  o.runner,
		root:    root,
		handle:  handle,
		fs:      fsa.New(handle),
		exclude: newExcludeSet(o.exclude),
	}, nil
}

type execBackend struct {
	runner  Runner
	root    string
	handle  *fsa.RootHandle
	fs      *fsa.Adapter
	exclude excludeSet
}

func (b *execBackend) Root() string {
	return b.root
}

func (b *execBackend) Close() error {
	return b.handle.Close()
}

func (b *execBackend) git(ctx context.Context, args ...string) ([]byte, error) {
	return b.runner.Run(ctx, b.root, args...)
}

// CurrentBranch implements Backend.
func (b *execBackend) CurrentBranch(ctx context.Context) (string, error) {
	if out, err := b.git(ctx, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		return strings.TrimSpace(string(out)), nil
	}

	out, err := b.git(ctx, "rev-parse", "--short=7", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

// ResolveRevision implements Backend.
func (b *execBackend) ResolveRevision(ctx context.Context, rev string) (string, error) {
	if err := validateRevision(rev); err != nil {
		return "", err
	}
	if rev == EmptyTreeHash {
		return rev, nil
	}

	out, err := b.git(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
	}

	return strings.TrimSpace(string(out)), nil
}

// ReadBlob implements Backend.
func (b *execBackend) ReadBlob(ctx context.Context, rev, path string) ([]byte, error) {
	hash, err := b.ResolveRevision(ctx, rev)
	if err != nil {
		return nil, err
	}
	if hash == EmptyTreeHash {
		return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, rev)
	}

	out, err := b.git(ctx, "cat-file", "blob", hash+":"+path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, rev)
	}

	return out, nil
}

// ReadWorkingFile implements Backend.
func (b *execBackend) ReadWorkingFile(ctx context.Context, path string) ([]byte, error) {
	return readWorkingFile(ctx, b.handle, b.fs, path)
}

// Log implements Backend.
func (b *execBackend) Log(ctx context.Context, depth int) ([]Commit, error) {
	var commits []Commit

	// git log lists children before parents, in commit date order.
	if _, err := b.git(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err == nil {
		out, logErr := b.git(ctx, "log", fmt.Sprintf("--max-count=%d", depth), "--format="+logFormat)
		if logErr != nil {
			return nil, fmt.Errorf("failed to read log: %w", logErr)
		}
		commits = parseLog(out, false)
	}

	out, err := b.git(ctx, "stash", "list", "--format="+stashFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to list stashes: %w", err)
	}

	return mergeStashes(commits, parseLog(out, true)), nil
}

// StatusMatrix implements Backend.
func (b *execBackend) StatusMatrix(ctx context.Context) ([]StatusRow, error) {
	out, err := b.git(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all", "--no-renames")
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}

	var rows []StatusRow
	for _, entry := range splitNUL(out) {
		if len(entry) < 4 {
			continue
		}

		path := entry[3:]
		if b.exclude.skips(path) {
			continue
		}

		rows = append(rows, StatusRow{
			Path:     path,
			Staging:  StatusCode(entry[0]),
			Worktree: StatusCode(entry[1]),
		})
	}

	slices.SortFunc(rows, func(x, y StatusRow) int { return strings.Compare(x.Path, y.Path) })

	return rows, nil
}

// ChangedFiles implements Backend.
func (b *execBackend) ChangedFiles(ctx context.Context, from, to string) ([]string, error) {
	fromHash, err := b.ResolveRevision(ctx, from)
	if err != nil {
		return nil, err
	}

	if to != "" {
		toHash, toErr := b.ResolveRevision(ctx, to)
		if toErr != nil {
			return nil, toErr
		}

		out, diffErr := b.git(ctx, "diff", "--name-only", "-z", "--no-renames", fromHash, toHash, "--")
		if diffErr != nil {
			return nil, fmt.Errorf("failed to diff revisions: %w", diffErr)
		}

		return sortedUnique(b.exclude.filter(splitNUL(out))), nil
	}

	out, err := b.git(ctx, "diff", "--name-only", "-z", "--no-renames", fromHash, "--")
	if err != nil {
		return nil, fmt.Errorf("failed to diff working tree: %w", err)
	}
	paths := splitNUL(out)

	untracked, err := b.git(ctx, "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, fmt.Errorf("failed to list untracked files: %w", err)
	}
	paths = append(paths, splitNUL(untracked)...)

	return sortedUnique(b.exclude.filter(paths)), nil
}

func parseLog(out []byte, stash bool) []Commit {
	var commits []Commit
	for record := range strings.SplitSeq(string(out), recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}

		fields := strings.Split(record, fieldSep)
		want := 7
		if stash {
			want = 8
		}
		if len(fields) < want {
			continue
		}

		date, _ := time.Parse(time.RFC3339, fields[4])
		committed, _ := time.Parse(time.RFC3339, fields[5])
		c := Commit{
			Hash:      fields[0],
			ShortHash: fields[1],
			Parents:   strings.Fields(fields[2]),
			Author:    fields[3],
			Date:      date,
			Committed: committed,
			Message:   fields[6],
			Type:      CommitTypeCommit,
		}
		if stash {
			c.Type = CommitTypeStash
			c.Ref = fields[6]
			c.Message = fields[7]
		}

		commits = append(commits, c)
	}

	return commits
}

// mergeStashes places each stash before the first commit it is newer than.
// Both lists are newest first and the order of history is kept as is.
func mergeStashes(history, stashes []Commit) []Commit {
	res := make([]Commit, 0, len(history)+len(stashes))

	i := 0
	for _, c := range history {
		for i < len(stashes) && stashes[i].Committed.After(c.Committed) {
			res = append(res, stashes[i])
			i++
		}
		res = append(res, c)
	}

	return append(res, stashes[i:]...)
}

// readWorkingFile reads path as git sees it: a symbolic link is the text of
// its target, never the content it points to.
func readWorkingFile(ctx context.Context, handle *fsa.RootHandle, fs *fsa.Adapter, path string) ([]byte, error) {
	if target, ok, err := handle.Readlink(path); err == nil && ok {
		return []byte(target), nil
	}

	data, err := fs.ReadFile(ctx, path)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, fsa.ErrNotFound),
		errors.Is(err, fsa.ErrTypeMismatch),
		errors.Is(err, fsa.ErrNotADirectory),
		errors.Is(err, fsa.ErrInvalidPath):
		return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}

	return nil, fmt.Errorf("failed to read working file: %w", err)
}

var _ Backend = (*execBackend)(nil)
