package changes_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/chigichan24/duff/internal/git"
	"github.com/google/uuid"
	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type workspace struct {
	t    *testing.T
	dir  string
	wt   *gogit.Worktree
	when time.Time
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &workspace{t: t, dir: dir, wt: wt, when: time.Now().Add(-time.Hour).Truncate(time.Second)}
}

func (w *workspace) write(path, data string) {
	w.t.Helper()

	full := filepath.Join(w.dir, filepath.FromSlash(path))
	require.NoError(w.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(w.t, os.WriteFile(full, []byte(data), 0o644))
}

func (w *workspace) remove(path string) {
	w.t.Helper()
	require.NoError(w.t, os.Remove(filepath.Join(w.dir, filepath.FromSlash(path))))
}

func (w *workspace) commit(msg string, paths ...string) plumbing.Hash {
	w.t.Helper()

	for _, p := range paths {
		_, err := w.wt.Add(p)
		require.NoError(w.t, err)
	}

	w.when = w.when.Add(time.Minute)
	h, err := w.wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com", When: w.when},
	})
	require.NoError(w.t, err)

	return h
}

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

func forEachBackend(t *testing.T, w *workspace, fn func(t *testing.T, b git.Backend)) {
	t.Helper()

	for name, opener := range openers(t) {
		t.Run(name, func(t *testing.T) {
			b, err := opener.Open(t.Context(), w.dir)
			require.NoError(t, err)
			defer b.Close()

			fn(t, b)
		})
	}
}

var errUnknownRepository = fmt.Errorf("unknown repository")

type registry map[uuid.UUID]string

func (r registry) Path(_ context.Context, id uuid.UUID) (string, error) {
	p, ok := r[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", errUnknownRepository, id)
	}

	return p, nil
}
