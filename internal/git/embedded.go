package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/chigichan24/duff/internal/fsa"
	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/format/index"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const stashReflog = ".git/logs/refs/stash"

// EmbeddedOpener opens backends that read the object database in-process
// and the working tree through the filesystem adapter.
type EmbeddedOpener struct {
	exclude []string
	logger  *zap.Logger
}

func NewEmbeddedOpener(exclude []string, logger *zap.Logger) *EmbeddedOpener {
	return &EmbeddedOpener{
		exclude: exclude,
		logger:  logger,
	}
}

// Open implements Opener.
func (o *EmbeddedOpener) Open(_ context.Context, path string) (Backend, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotARepository, path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotARepository, path, err)
	}

	root := wt.Filesystem.Root()
	handle, err := fsa.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open working tree: %w", err)
	}

	o.logger.Debug("repository opened", zap.String("root", root), zap.String("backend", string(BackendEmbedded)))

	return &embeddedBackend{
		repo:    repo,
		root:    root,
		handle:  handle,
		fs:      fsa.New(handle),
		exclude: newExcludeSet(o.exclude),
	}, nil
}

type embeddedBackend struct {
	repo    *gogit.Repository
	root    string
	handle  *fsa.RootHandle
	fs      *fsa.Adapter
	exclude excludeSet
}

func (b *embeddedBackend) Root() string {
	return b.root
}

func (b *embeddedBackend) Close() error {
	return b.handle.Close()
}

// CurrentBranch implements Backend. An unborn branch is reported by name.
func (b *embeddedBackend) CurrentBranch(_ context.Context) (string, error) {
	ref, err := b.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read HEAD: %w", ErrToolFailure, err)
	}

	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}

	return shortHash(ref.Hash().String()), nil
}

// ResolveRevision implements Backend.
func (b *embeddedBackend) ResolveRevision(ctx context.Context, rev string) (string, error) {
	c, err := b.commit(ctx, rev)
	if err != nil {
		return "", err
	}
	if c == nil {
		return EmptyTreeHash, nil
	}

	return c.Hash.String(), nil
}

// commit resolves rev to a commit. The empty tree resolves to nil.
func (b *embeddedBackend) commit(ctx context.Context, rev string) (*object.Commit, error) {
	if err := validateRevision(rev); err != nil {
		return nil, err
	}
	if rev == EmptyTreeHash {
		return nil, nil //nolint:nilnil //empty tree has no commit
	}

	if n, ok := parseStashSelector(rev); ok {
		stashes, err := b.stashes(ctx)
		if err != nil {
			return nil, err
		}
		if n >= len(stashes) {
			return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
		}
		rev = stashes[n].New
	}

	h, err := b.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRevisionNotFound, rev, err)
	}

	c, err := b.repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRevisionNotFound, rev, err)
	}

	return c, nil
}

// stashes lists stash reflog entries, newest first.
func (b *embeddedBackend) stashes(ctx context.Context) ([]reflogEntry, error) {
	data, err := b.fs.ReadFile(ctx, stashReflog)
	if errors.Is(err, fsa.ErrNotFound) || errors.Is(err, fsa.ErrNotADirectory) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stash reflog: %w", err)
	}

	entries := parseReflog(data)
	slices.Reverse(entries)

	return entries, nil
}

// ReadBlob implements Backend.
func (b *embeddedBackend) ReadBlob(ctx context.Context, rev, path string) ([]byte, error) {
	c, err := b.commit(ctx, rev)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, rev)
	}

	f, err := c.File(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at %s: %w", ErrFileNotFound, path, rev, err)
	}

	r, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open blob: %w", ErrToolFailure, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read blob: %w", ErrToolFailure, err)
	}

	return data, nil
}

// ReadWorkingFile implements Backend.
func (b *embeddedBackend) ReadWorkingFile(ctx context.Context, path string) ([]byte, error) {
	return readWorkingFile(ctx, b.handle, b.fs, path)
}

// Log implements Backend.
func (b *embeddedBackend) Log(ctx context.Context, depth int) ([]Commit, error) {
	var commits []Commit

	head, err := b.repo.Head()
	switch {
	case err == nil:
		iter, logErr := b.repo.Log(&gogit.LogOptions{From: head.Hash(), Order: gogit.LogOrderCommitterTime})
		if logErr != nil {
			return nil, fmt.Errorf("%w: failed to read log: %w", ErrToolFailure, logErr)
		}

		err = iter.ForEach(func(c *object.Commit) error {
			if len(commits) >= depth {
				return storer.ErrStop
			}
			commits = append(commits, newCommit(c, CommitTypeCommit, ""))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read log: %w", ErrToolFailure, err)
		}
	case !errors.Is(err, plumbing.ErrReferenceNotFound):
		return nil, fmt.Errorf("%w: failed to read HEAD: %w", ErrToolFailure, err)
	}

	entries, err := b.stashes(ctx)
	if err != nil {
		return nil, err
	}

	stashes := make([]Commit, 0, len(entries))
	for i, s := range entries {
		c, cErr := b.commit(ctx, s.New)
		if cErr != nil {
			return nil, cErr
		}
		stashes = append(stashes, newCommit(c, CommitTypeStash, fmt.Sprintf("stash@{%d}", i)))
	}

	return mergeStashes(commits, stashes), nil
}

func newCommit(c *object.Commit, typ CommitType, ref string) Commit {
	hash := c.Hash.String()

	return Commit{
		Hash:      hash,
		ShortHash: shortHash(hash),
		Parents: lo.Map(c.ParentHashes, func(h plumbing.Hash, _ int) string {
			return h.String()
		}),
		Date:      c.Author.When,
		Committed: c.Committer.When,
		Message:   firstLine(c.Message),
		Author:    c.Author.Name,
		Type:      typ,
		Ref:       ref,
	}
}

// StatusMatrix implements Backend.
func (b *embeddedBackend) StatusMatrix(ctx context.Context) ([]StatusRow, error) {
	head := map[string]plumbing.Hash{}
	ref, err := b.repo.Head()
	switch {
	case err == nil:
		c, cErr := b.repo.CommitObject(ref.Hash())
		if cErr != nil {
			return nil, fmt.Errorf("%w: failed to read HEAD commit: %w", ErrToolFailure, cErr)
		}
		if head, err = treeFiles(c); err != nil {
			return nil, err
		}
	case !errors.Is(err, plumbing.ErrReferenceNotFound):
		return nil, fmt.Errorf("%w: failed to read HEAD: %w", ErrToolFailure, err)
	}

	staged, conflicted, err := b.index()
	if err != nil {
		return nil, err
	}

	work, err := newWorktreeWalker(b.fs, b.exclude, lo.Keys(head), lo.Keys(staged), lo.Keys(conflicted)).Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan working tree: %w", err)
	}

	racy := b.indexModTime(ctx)
	paths := sortedUnique(slices.Concat(lo.Keys(head), lo.Keys(staged), lo.Keys(conflicted), lo.Keys(work)))

	var rows []StatusRow
	for _, p := range b.exclude.filter(paths) {
		if _, ok := conflicted[p]; ok {
			rows = append(rows, StatusRow{Path: p, Staging: StatusUnmerged, Worktree: StatusUnmerged})
			continue
		}

		h, inHead := head[p]
		e, inIndex := staged[p]
		_, inWork := work[p]

		row := StatusRow{Path: p, Staging: StatusUnmodified, Worktree: StatusUnmodified}
		switch {
		case inIndex && !inHead:
			row.Staging = StatusAdded
		case inHead && !inIndex:
			row.Staging = StatusDeleted
		case inHead && inIndex && h != e.Hash:
			row.Staging = StatusModified
		}

		switch {
		case !inIndex && inWork && !inHead:
			row.Staging, row.Worktree = StatusUntracked, StatusUntracked
		case !inIndex && inWork:
			row.Worktree = StatusUntracked
		case inIndex && !inWork:
			row.Worktree = StatusDeleted
		case inIndex && inWork:
			same, sErr := b.sameContent(ctx, p, e.Hash, e, racy)
			if sErr != nil {
				return nil, sErr
			}
			if !same {
				row.Worktree = StatusModified
			}
		}

		if row.HasChanges() {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// ChangedFiles implements Backend.
func (b *embeddedBackend) ChangedFiles(ctx context.Context, from, to string) ([]string, error) {
	fromCommit, err := b.commit(ctx, from)
	if err != nil {
		return nil, err
	}
	fromFiles, err := treeFiles(fromCommit)
	if err != nil {
		return nil, err
	}

	if to != "" {
		toCommit, toErr := b.commit(ctx, to)
		if toErr != nil {
			return nil, toErr
		}
		toFiles, toErr := treeFiles(toCommit)
		if toErr != nil {
			return nil, toErr
		}

		var changed []string
		for p, h := range fromFiles {
			if th, ok := toFiles[p]; !ok || th != h {
				changed = append(changed, p)
			}
		}
		for p := range toFiles {
			if _, ok := fromFiles[p]; !ok {
				changed = append(changed, p)
			}
		}

		return sortedUnique(b.exclude.filter(changed)), nil
	}

	staged, _, err := b.index()
	if err != nil {
		return nil, err
	}

	work, err := newWorktreeWalker(b.fs, b.exclude, lo.Keys(fromFiles), lo.Keys(staged)).Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan working tree: %w", err)
	}

	racy := b.indexModTime(ctx)
	paths := sortedUnique(slices.Concat(lo.Keys(fromFiles), lo.Keys(work)))

	var changed []string
	for _, p := range b.exclude.filter(paths) {
		h, inFrom := fromFiles[p]
		_, inWork := work[p]

		if inFrom != inWork {
			changed = append(changed, p)
			continue
		}

		same, sErr := b.sameContent(ctx, p, h, staged[p], racy)
		if sErr != nil {
			return nil, sErr
		}
		if !same {
			changed = append(changed, p)
		}
	}

	return changed, nil
}

// index returns merged index entries by path and the set of conflicted paths.
func (b *embeddedBackend) index() (map[string]*index.Entry, map[string]struct{}, error) {
	idx, err := b.repo.Storer.Index()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read index: %w", ErrToolFailure, err)
	}

	staged := make(map[string]*index.Entry, len(idx.Entries))
	conflicted := map[string]struct{}{}
	for _, e := range idx.Entries {
		// Stage 0 is an ordinary entry, 1 to 3 are the sides of a conflict.
		if e.Stage != 0 {
			conflicted[e.Name] = struct{}{}
			continue
		}
		staged[e.Name] = e
	}

	return staged, conflicted, nil
}

// indexModTime bounds the stat shortcut: files touched at or after the index
// was written are compared by content.
func (b *embeddedBackend) indexModTime(ctx context.Context) time.Time {
	st, err := b.fs.Stat(ctx, ".git/index")
	if err != nil {
		return time.Time{}
	}

	return st.ModTime
}

// sameContent reports whether the working file at path holds the blob want.
func (b *embeddedBackend) sameContent(
	ctx context.Context,
	path string,
	want plumbing.Hash,
	entry *index.Entry,
	racy time.Time,
) (bool, error) {
	if entry != nil && entry.Hash == want && entry.Mode != filemode.Symlink {
		st, err := b.fs.Stat(ctx, path)
		if err == nil &&
			st.Size == int64(entry.Size) &&
			st.ModTime.Equal(entry.ModifiedAt) &&
			st.ModTime.Before(racy) {
			return true, nil
		}
	}

	data, err := readWorkingFile(ctx, b.handle, b.fs, path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}

	blob, err := b.repo.BlobObject(want)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read blob for %s: %w", ErrToolFailure, path, err)
	}
	if blob.Size != int64(len(data)) {
		return false, nil
	}

	r, err := blob.Reader()
	if err != nil {
		return false, fmt.Errorf("%w: failed to open blob for %s: %w", ErrToolFailure, path, err)
	}
	defer r.Close()

	stored, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read blob for %s: %w", ErrToolFailure, path, err)
	}

	return bytes.Equal(stored, data), nil
}

// treeFiles flattens the tree of c into path -> blob hash. A nil commit is the
// empty tree.
func treeFiles(c *object.Commit) (map[string]plumbing.Hash, error) {
	files := map[string]plumbing.Hash{}
	if c == nil {
		return files, nil
	}

	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read tree: %w", ErrToolFailure, err)
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		files[f.Name] = f.Hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk tree: %w", ErrToolFailure, err)
	}

	return files, nil
}

var _ Backend = (*embeddedBackend)(nil)
