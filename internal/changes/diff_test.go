package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedDiff(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		d, err := unifiedDiff("a.txt", snapshot{data: []byte("x\n"), exists: true}, snapshot{data: []byte("x\n"), exists: true})
		require.NoError(t, err)
		assert.Empty(t, d)
	})

	t.Run("modified keeps context", func(t *testing.T) {
		left := "1\n2\n3\n4\n5\n6\n7\n8\n"
		right := "1\n2\n3\n4\nfive\n6\n7\n8\n"

		d, err := unifiedDiff("n.txt", snapshot{data: []byte(left), exists: true}, snapshot{data: []byte(right), exists: true})
		require.NoError(t, err)
		assert.Equal(t, "diff --git a/n.txt b/n.txt\n"+
			"--- a/n.txt\n"+
			"+++ b/n.txt\n"+
			"@@ -2,7 +2,7 @@\n"+
			" 2\n 3\n 4\n-5\n+five\n 6\n 7\n 8\n", d)
	})

	t.Run("added", func(t *testing.T) {
		d, err := unifiedDiff("new.txt", snapshot{}, snapshot{data: []byte("hello\n"), exists: true})
		require.NoError(t, err)
		assert.Equal(t, "diff --git a/new.txt b/new.txt\n--- /dev/null\n+++ b/new.txt\n@@ -0,0 +1 @@\n+hello\n", d)
	})

	t.Run("deleted", func(t *testing.T) {
		d, err := unifiedDiff("old.txt", snapshot{data: []byte("a\nb\n"), exists: true}, snapshot{})
		require.NoError(t, err)
		assert.Contains(t, d, "--- a/old.txt\n+++ /dev/null\n")
		assert.Contains(t, d, "-a\n-b\n")
		assert.NotContains(t, d, "\n+a")
		assert.NotContains(t, d, "\n+b")
	})

	t.Run("empty file added", func(t *testing.T) {
		d, err := unifiedDiff("empty", snapshot{}, snapshot{data: []byte{}, exists: true})
		require.NoError(t, err)
		assert.Equal(t, "diff --git a/empty b/empty\n--- /dev/null\n+++ b/empty\n", d)
	})

	t.Run("missing final newline", func(t *testing.T) {
		d, err := unifiedDiff("f", snapshot{data: []byte("a"), exists: true}, snapshot{data: []byte("a\n"), exists: true})
		require.NoError(t, err)
		assert.Contains(t, d, "-a\n\\ No newline at end of file\n+a\n")
	})

	t.Run("binary", func(t *testing.T) {
		d, err := unifiedDiff("img.png",
			snapshot{data: []byte{0x89, 'P', 0x00, 0x01}, exists: true},
			snapshot{data: []byte{0x89, 'P', 0x00, 0x02}, exists: true})
		require.NoError(t, err)
		assert.Equal(t, "diff --git a/img.png b/img.png\nBinary files a/img.png and b/img.png differ\n", d)
	})
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(nil))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLines([]byte("a\nb\n")))
	assert.Equal(t, []string{"a\n", "b\n" + noNewline}, splitLines([]byte("a\nb")))
	assert.Equal(t, []string{"\n"}, splitLines([]byte("\n")))
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text\n")))
	assert.True(t, isBinary([]byte{'a', 0x00}))

	late := make([]byte, binarySniffLen+10)
	for i := range late {
		late[i] = 'a'
	}
	late[binarySniffLen+5] = 0
	assert.False(t, isBinary(late))
}
