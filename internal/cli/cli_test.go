package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"4d63.com/testcli"
	"github.com/chigichan24/duff/internal/cli"
	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (string, string) {
	t.Helper()

	dir := testcli.MkdirTemp(t)
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Repo\nInitial content\n"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	head, err := wt.Commit("Initial commit", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Tests", Email: "tests@example.com", When: time.Now().Add(-time.Hour)},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Repo\nModified content\n"), 0o644))

	return dir, head.String()
}

func TestStatus(t *testing.T) {
	dir, _ := setupRepo(t)

	args := []string{"duff", "status", "--backend", "embedded", dir}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, cli.Run)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "", stderr)

	var status struct {
		Branch        string   `json:"branch"`
		ModifiedFiles []string `json:"modifiedFiles"`
		HasChanges    bool     `json:"hasChanges"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.NotEmpty(t, status.Branch)
	assert.Equal(t, []string{"README.md"}, status.ModifiedFiles)
	assert.True(t, status.HasChanges)
}

func TestLogAndFiles(t *testing.T) {
	dir, head := setupRepo(t)

	args := []string{"duff", "log", "--backend", "embedded", dir}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, cli.Run)
	assert.Equal(t, 0, exitCode, stderr)

	var commits []struct {
		Hash    string   `json:"hash"`
		Parents []string `json:"parents"`
		Message string   `json:"message"`
		Type    string   `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &commits))
	require.Len(t, commits, 1)
	assert.Equal(t, head, commits[0].Hash)
	assert.Equal(t, "Initial commit", commits[0].Message)
	assert.Equal(t, "commit", commits[0].Type)
	assert.Equal(t, []string{}, commits[0].Parents)

	args = []string{"duff", "files", "--backend", "embedded", "--from", head, dir}
	exitCode, stdout, stderr = testcli.Main(t, args, nil, cli.Run)
	assert.Equal(t, 0, exitCode, stderr)
	assert.Equal(t, `{
  "files": [
    "README.md"
  ]
}
`, stdout)
}

func TestDiff(t *testing.T) {
	dir, _ := setupRepo(t)

	args := []string{"duff", "diff", "--backend", "embedded", dir, "README.md"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, cli.Run)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "", stderr)
	assert.Equal(t, `diff --git a/README.md b/README.md
--- a/README.md
+++ b/README.md
@@ -1,2 +1,2 @@
 # Test Repo
-Initial content
+Modified content
`, stdout)
}

func TestShow(t *testing.T) {
	dir, _ := setupRepo(t)

	args := []string{"duff", "show", "--backend", "embedded", dir, "README.md", "--version", "HEAD"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, cli.Run)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "", stderr)
	assert.Equal(t, "# Test Repo\nInitial content\n", stdout)

	args = []string{"duff", "show", "--backend", "embedded", dir, "README.md"}
	exitCode, stdout, _ = testcli.Main(t, args, nil, cli.Run)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "# Test Repo\nModified content\n", stdout)
}

func TestErrors(t *testing.T) {
	dir, _ := setupRepo(t)
	notRepo := testcli.MkdirTemp(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "not a repository", args: []string{"duff", "status", "--backend", "embedded", notRepo}},
		{name: "path escape", args: []string{"duff", "show", "--backend", "embedded", dir, "../../etc/passwd"}},
		{name: "unknown revision", args: []string{"duff", "files", "--backend", "embedded", "--from", "nope", dir}},
		{name: "unknown backend", args: []string{"duff", "status", "--backend", "svn", dir}},
		{name: "missing path", args: []string{"duff", "status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode, stdout, stderr := testcli.Main(t, tt.args, nil, cli.Run)
			assert.Equal(t, 1, exitCode)
			assert.Equal(t, "", stdout)
			assert.Contains(t, stderr, "duff: ")
		})
	}
}
