package git_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/chigichan24/duff/internal/git"
	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	wt   *gogit.Worktree
	when time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &fixture{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		when: time.Now().Add(-time.Hour).Truncate(time.Second),
	}
}

func (f *fixture) write(path string, data string) {
	f.t.Helper()

	full := filepath.Join(f.dir, filepath.FromSlash(path))
	require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(f.t, os.WriteFile(full, []byte(data), 0o644))
}

func (f *fixture) remove(path string) {
	f.t.Helper()
	require.NoError(f.t, os.Remove(filepath.Join(f.dir, filepath.FromSlash(path))))
}

// commit stages paths and commits them. Commits are a minute apart so log
// order is deterministic.
func (f *fixture) commit(msg string, paths ...string) plumbing.Hash {
	f.t.Helper()

	return f.commitAuthored(msg, f.when.Add(time.Minute), paths...)
}

// commitAuthored commits with the given author date. The commit date still
// advances by a minute, as it does after a rebase.
func (f *fixture) commitAuthored(msg string, authored time.Time, paths ...string) plumbing.Hash {
	f.t.Helper()

	for _, p := range paths {
		_, err := f.wt.Add(p)
		require.NoError(f.t, err)
	}

	f.when = f.when.Add(time.Minute)
	h, err := f.wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  authored,
		},
		Committer: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  f.when,
		},
	})
	require.NoError(f.t, err)

	return h
}

func (f *fixture) branch() string {
	f.t.Helper()

	ref, err := f.repo.Reference(plumbing.HEAD, false)
	require.NoError(f.t, err)

	return ref.Target().Short()
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in PATH")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test Author",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test Author",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)

	return string(out)
}

// openers returns every backend available in this environment.
func openers(t *testing.T) map[string]git.Opener {
	t.Helper()

	logger := zaptest.NewLogger(t)
	res := map[string]git.Opener{
		"embedded": git.NewEmbeddedOpener(git.DefaultExclude(), logger),
	}
	if _, err := exec.LookPath("git"); err == nil {
		res["exec"] = git.NewExecOpener(git.NewExecRunner("git", 10*time.Second), git.DefaultExclude(), logger)
	}

	return res
}

func forEachBackend(t *testing.T, f *fixture, fn func(t *testing.T, b git.Backend)) {
	t.Helper()

	for name, opener := range openers(t) {
		t.Run(name, func(t *testing.T) {
			b, err := opener.Open(t.Context(), f.dir)
			require.NoError(t, err)
			defer b.Close()

			fn(t, b)
		})
	}
}
