package git_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/revrange"
	gogit "github.com/go-git/go-git/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusByPath(rows []git.StatusRow) map[string]string {
	res := make(map[string]string, len(rows))
	for _, r := range rows {
		res[r.Path] = string([]byte{byte(r.Staging), byte(r.Worktree)})
	}

	return res
}

func TestBackend_CleanWorkingCopy(t *testing.T) {
	f := newFixture(t)
	f.write("README.md", "# Test Repo\nInitial content")
	f.commit("initial commit", "README.md")

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		rows, err := b.StatusMatrix(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)

		branch, err := b.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.branch(), branch)

		files, err := b.ChangedFiles(ctx, "HEAD", "")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestBackend_StatusMatrix(t *testing.T) {
	f := newFixture(t)
	f.write("README.md", "# Test Repo\nInitial content")
	f.write("other.txt", "other\n")
	f.write(".gitignore", "*.log\n")
	f.commit("initial commit", "README.md", "other.txt", ".gitignore")

	f.write("README.md", "# Test Repo\nModified content")
	f.remove("other.txt")
	f.write("new.txt", "new\n")
	f.write("debug.log", "ignored\n")
	f.write("node_modules/pkg/index.js", "excluded\n")
	f.write("src/nested/added.go", "package nested\n")
	_, err := f.wt.Add("src/nested/added.go")
	require.NoError(t, err)

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		rows, err := b.StatusMatrix(ctx)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"README.md":           " M",
			"other.txt":           " D",
			"new.txt":             "??",
			"src/nested/added.go": "A ",
		}, statusByPath(rows))

		for _, r := range rows {
			assert.True(t, r.HasChanges(), r.Path)
		}

		files, err := b.ChangedFiles(ctx, "HEAD", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md", "new.txt", "other.txt", "src/nested/added.go"}, files)
	})
}

func TestBackend_ReadBlob(t *testing.T) {
	f := newFixture(t)
	binary := string([]byte{0x89, 'P', 'N', 'G', 0x00, 0x0d, 0x0a, 0x1a, 0xff, 0x00})
	f.write("README.md", "# Test Repo\nInitial content")
	f.write("img/logo.png", binary)
	f.commit("initial commit", "README.md", "img/logo.png")
	f.write("README.md", "# Test Repo\nModified content")

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		data, err := b.ReadBlob(ctx, "HEAD", "README.md")
		require.NoError(t, err)
		assert.Equal(t, "# Test Repo\nInitial content", string(data))

		data, err = b.ReadBlob(ctx, "HEAD", "img/logo.png")
		require.NoError(t, err)
		assert.Equal(t, []byte(binary), data)

		data, err = b.ReadWorkingFile(ctx, "README.md")
		require.NoError(t, err)
		assert.Equal(t, "# Test Repo\nModified content", string(data))

		_, err = b.ReadWorkingFile(ctx, "missing.md")
		assert.ErrorIs(t, err, git.ErrFileNotFound)

		_, err = b.ReadBlob(ctx, "HEAD", "missing.md")
		assert.ErrorIs(t, err, git.ErrFileNotFound)

		_, err = b.ReadBlob(ctx, git.EmptyTreeHash, "README.md")
		assert.ErrorIs(t, err, git.ErrFileNotFound)

		_, err = b.ReadBlob(ctx, "no-such-branch", "README.md")
		assert.ErrorIs(t, err, git.ErrRevisionNotFound)

		_, err = b.ReadBlob(ctx, "--output=/tmp/x", "README.md")
		assert.ErrorIs(t, err, git.ErrInvalidRevision)
	})
}

func TestBackend_LogAndRanges(t *testing.T) {
	f := newFixture(t)
	f.write("a.txt", "a\n")
	first := f.commit("first", "a.txt")
	f.write("b.txt", "b\n")
	f.write("a.txt", "a2\n")
	second := f.commit("second\n\nbody", "a.txt", "b.txt")
	f.write("c.txt", "c\n")
	third := f.commit("third", "c.txt")

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		commits, err := b.Log(ctx, 100)
		require.NoError(t, err)
		require.Len(t, commits, 3)

		assert.Equal(t, third.String(), commits[0].Hash)
		assert.Equal(t, second.String(), commits[1].Hash)
		assert.Equal(t, first.String(), commits[2].Hash)
		assert.Equal(t, "second", commits[1].Message)
		assert.Equal(t, "Test Author", commits[1].Author)
		assert.Equal(t, git.CommitTypeCommit, commits[1].Type)
		assert.Equal(t, []string{first.String()}, commits[1].Parents)
		assert.Empty(t, commits[2].Parents)
		assert.Equal(t, third.String()[:7], commits[0].ShortHash)

		limited, err := b.Log(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		files, err := b.ChangedFiles(ctx, first.String(), second.String())
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.txt"}, files)

		files, err = b.ChangedFiles(ctx, "HEAD~1", "HEAD")
		require.NoError(t, err)
		assert.Equal(t, []string{"c.txt"}, files)

		files, err = b.ChangedFiles(ctx, git.EmptyTreeHash, first.String())
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt"}, files)

		files, err = b.ChangedFiles(ctx, first.String(), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, files)

		hash, err := b.ResolveRevision(ctx, "HEAD")
		require.NoError(t, err)
		assert.Equal(t, third.String(), hash)

		_, err = b.ChangedFiles(ctx, "nope", "")
		assert.ErrorIs(t, err, git.ErrRevisionNotFound)
	})
}

func TestBackend_LogFollowsHistoryNotAuthorDate(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture(t)
	f.write("a.txt", "a\n")
	a := f.commitAuthored("a", jan, "a.txt")
	f.write("b.txt", "b\n")
	b := f.commitAuthored("b", jan.AddDate(0, 5, 0), "b.txt")
	// c was cherry-picked onto b and keeps its older author date.
	f.write("c.txt", "c\n")
	c := f.commitAuthored("c", jan.AddDate(0, 2, 0), "c.txt")

	forEachBackend(t, f, func(t *testing.T, be git.Backend) {
		ctx := t.Context()

		commits, err := be.Log(ctx, 10)
		require.NoError(t, err)
		require.Len(t, commits, 3)
		assert.Equal(t, []string{c.String(), b.String(), a.String()},
			[]string{commits[0].Hash, commits[1].Hash, commits[2].Hash})
		assert.Equal(t, time.March, commits[0].Date.UTC().Month())

		rng, err := revrange.Resolve(revrange.Selection{
			From: revrange.Revision(b.String()),
			To:   revrange.Revision(c.String()),
		}, commits)
		require.NoError(t, err)
		assert.Equal(t, revrange.Range{From: a.String(), To: c.String()}, rng)

		files, err := be.ChangedFiles(ctx, rng.From, rng.To)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.txt", "c.txt"}, files)
	})
}

func TestBackend_Symlinks(t *testing.T) {
	f := newFixture(t)
	f.write("README.md", "# Test Repo\n")
	require.NoError(t, os.Symlink("README.md", filepath.Join(f.dir, "link")))
	f.commit("initial commit", "README.md", "link")
	require.NoError(t, os.Symlink(".", filepath.Join(f.dir, "loop")))

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		rows, err := b.StatusMatrix(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"loop": "??"}, statusByPath(rows))

		data, err := b.ReadWorkingFile(ctx, "link")
		require.NoError(t, err)
		assert.Equal(t, "README.md", string(data))

		data, err = b.ReadBlob(ctx, "HEAD", "link")
		require.NoError(t, err)
		assert.Equal(t, "README.md", string(data))

		files, err := b.ChangedFiles(ctx, "HEAD", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"loop"}, files)
	})
}

func TestBackend_MergeConflict(t *testing.T) {
	requireGit(t)

	f := newFixture(t)
	f.write("a.txt", "base\n")
	f.write("b.txt", "untouched\n")
	f.commit("base", "a.txt", "b.txt")
	mainBranch := f.branch()

	runGit(t, f.dir, "checkout", "-q", "-b", "other")
	f.write("a.txt", "other\n")
	runGit(t, f.dir, "commit", "-q", "-am", "other side")
	runGit(t, f.dir, "checkout", "-q", mainBranch)
	f.write("a.txt", "main\n")
	runGit(t, f.dir, "commit", "-q", "-am", "main side")

	merge := exec.Command("git", "merge", "-q", "other")
	merge.Dir = f.dir
	merge.Env = append(os.Environ(), "GIT_AUTHOR_NAME=Test Author", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test Author", "GIT_COMMITTER_EMAIL=test@example.com")
	require.Error(t, merge.Run())

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		rows, err := b.StatusMatrix(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a.txt": "UU"}, statusByPath(rows))
	})
}

func TestBackend_DetachedHead(t *testing.T) {
	f := newFixture(t)
	f.write("a.txt", "a\n")
	first := f.commit("first", "a.txt")
	f.write("a.txt", "b\n")
	f.commit("second", "a.txt")

	require.NoError(t, f.wt.Checkout(&gogit.CheckoutOptions{Hash: first}))

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		branch, err := b.CurrentBranch(t.Context())
		require.NoError(t, err)
		assert.Equal(t, first.String()[:7], branch)
	})
}

func TestBackend_UnbornBranch(t *testing.T) {
	f := newFixture(t)
	f.write("draft.txt", "draft\n")

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		branch, err := b.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.branch(), branch)

		commits, err := b.Log(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, commits)

		rows, err := b.StatusMatrix(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"draft.txt": "??"}, statusByPath(rows))
	})
}

func TestBackend_Stash(t *testing.T) {
	requireGit(t)

	f := newFixture(t)
	f.write("README.md", "# Test Repo\nInitial content")
	f.commit("initial commit", "README.md")
	f.write("README.md", "# Test Repo\nStashed content")
	runGit(t, f.dir, "stash", "push", "-m", "wip readme")

	forEachBackend(t, f, func(t *testing.T, b git.Backend) {
		ctx := t.Context()

		commits, err := b.Log(ctx, 10)
		require.NoError(t, err)

		var stash *git.Commit
		for i := range commits {
			if commits[i].Type == git.CommitTypeStash {
				stash = &commits[i]
			}
		}
		require.NotNil(t, stash)
		assert.Equal(t, "stash@{0}", stash.Ref)
		assert.Contains(t, stash.Message, "wip readme")

		hash, err := b.ResolveRevision(ctx, "stash@{0}")
		require.NoError(t, err)
		assert.Equal(t, stash.Hash, hash)

		data, err := b.ReadBlob(ctx, "stash@{0}", "README.md")
		require.NoError(t, err)
		assert.Equal(t, "# Test Repo\nStashed content", string(data))

		_, err = b.ResolveRevision(ctx, "stash@{5}")
		assert.ErrorIs(t, err, git.ErrRevisionNotFound)

		files, err := b.ChangedFiles(ctx, "HEAD", "stash@{0}")
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md"}, files)
	})
}

func TestOpener_NotARepository(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0o644))

	for name, opener := range openers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := opener.Open(t.Context(), dir)
			assert.ErrorIs(t, err, git.ErrNotARepository)
		})
	}
}
