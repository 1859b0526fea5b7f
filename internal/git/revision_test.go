package git

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStashSelector(t *testing.T) {
	tests := []struct {
		rev  string
		want int
		ok   bool
	}{
		{rev: "stash", want: 0, ok: true},
		{rev: "stash@{0}", want: 0, ok: true},
		{rev: "stash@{12}", want: 12, ok: true},
		{rev: "stash@{-1}", ok: false},
		{rev: "stash@{yesterday}", ok: false},
		{rev: "HEAD", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.rev, func(t *testing.T) {
			got, ok := parseStashSelector(tt.rev)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValidateRevision(t *testing.T) {
	for _, rev := range []string{"HEAD", "HEAD~1", "main", "stash@{0}", EmptyTreeHash, "feature/x"} {
		assert.NoError(t, validateRevision(rev), rev)
	}

	for _, rev := range []string{"", "-n", "--all", "a b", "a\nb", "x\x00"} {
		assert.ErrorIs(t, validateRevision(rev), ErrInvalidRevision, rev)
	}
}

func TestExcludeSet(t *testing.T) {
	s := newExcludeSet([]string{"node_modules", "/dist/", ""})

	assert.True(t, s.skips(".git/config"))
	assert.True(t, s.skips("web/node_modules/react/index.js"))
	assert.True(t, s.skips("dist/app.js"))
	assert.False(t, s.skips("node_modules"), "a file named like an excluded directory is kept")
	assert.False(t, s.skips("src/dist.go"))

	assert.Equal(t, []string{"a.go", "b/c.go"}, s.filter([]string{"a.go", "node_modules/x.js", "b/c.go"}))
}

func TestParseReflog(t *testing.T) {
	data := []byte("0000000000000000000000000000000000000000 1111111111111111111111111111111111111111 A <a@b> 1700000000 +0000\tOn main: first\n" +
		"1111111111111111111111111111111111111111 2222222222222222222222222222222222222222 A <a@b> 1700000100 +0000\tOn main: second\n")

	entries := parseReflog(data)
	assert.Equal(t, []reflogEntry{
		{Old: "0000000000000000000000000000000000000000", New: "1111111111111111111111111111111111111111", Message: "On main: first"},
		{Old: "1111111111111111111111111111111111111111", New: "2222222222222222222222222222222222222222", Message: "On main: second"},
	}, entries)
}

func TestParseLog(t *testing.T) {
	out := []byte("aaaa\x00aa\x00p1 p2\x00Ann\x002024-01-02T03:04:05+00:00\x002024-02-01T00:00:00+00:00\x00merge things\x1e\n" +
		"bbbb\x00bb\x00\x00Bob\x002024-01-01T00:00:00+00:00\x002024-01-01T00:00:00+00:00\x00root\x1e\n")

	commits := parseLog(out, false)
	if assert.Len(t, commits, 2) {
		assert.Equal(t, []string{"p1", "p2"}, commits[0].Parents)
		assert.Equal(t, "merge things", commits[0].Message)
		assert.Equal(t, time.January, commits[0].Date.Month())
		assert.Equal(t, time.February, commits[0].Committed.Month())
		assert.Empty(t, commits[1].Parents)
		assert.Equal(t, CommitTypeCommit, commits[1].Type)
	}

	stash := parseLog([]byte("cccc\x00cc\x00aaaa\x00Ann\x002024-01-03T00:00:00+00:00\x002024-01-03T00:00:00+00:00\x00stash@{0}\x00On main: wip\x1e\n"), true)
	if assert.Len(t, stash, 1) {
		assert.Equal(t, CommitTypeStash, stash[0].Type)
		assert.Equal(t, "stash@{0}", stash[0].Ref)
		assert.Equal(t, "On main: wip", stash[0].Message)
	}
}

func TestMergeStashes(t *testing.T) {
	at := func(day int) time.Time { return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC) }

	// c2 was rebased: its commit date is newest although its author date is not.
	history := []Commit{
		{Hash: "c2", Date: at(1), Committed: at(10)},
		{Hash: "c1", Date: at(5), Committed: at(5)},
		{Hash: "c0", Date: at(2), Committed: at(2)},
	}
	stashes := []Commit{
		{Hash: "s1", Committed: at(11), Type: CommitTypeStash},
		{Hash: "s0", Committed: at(3), Type: CommitTypeStash},
	}

	hashes := func(cs []Commit) []string {
		res := make([]string, 0, len(cs))
		for _, c := range cs {
			res = append(res, c.Hash)
		}
		return res
	}

	assert.Equal(t, []string{"s1", "c2", "c1", "s0", "c0"}, hashes(mergeStashes(history, stashes)))
	assert.Equal(t, []string{"c2", "c1", "c0"}, hashes(mergeStashes(history, nil)))
	assert.Equal(t, []string{"s1", "s0"}, hashes(mergeStashes(nil, stashes)))
}

func TestSanitizeArgs(t *testing.T) {
	assert.Equal(t, "cat-file blob", sanitizeArgs([]string{"cat-file", "blob", "abc:secret/path"}))
	assert.Equal(t, "status", sanitizeArgs([]string{"status", "--porcelain=v1"}))
	assert.Equal(t, "<redacted>", sanitizeArgs([]string{"--no-pager"}))
	assert.Equal(t, "https://<redacted>@host token=<redacted>", redactTokens("https://user:pw@host token=abc"))
}
