package changes

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	contextLines = 3
	// binarySniffLen matches git's heuristic: a NUL byte early in the file.
	binarySniffLen = 8000
	devNull        = "/dev/null"
	noNewline      = "\\ No newline at end of file\n"
)

// snapshot is one side of a file diff. A missing side diffs as empty.
type snapshot struct {
	data   []byte
	exists bool
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}

	return bytes.IndexByte(data, 0) >= 0
}

// unifiedDiff renders the patch for path between left and right. Identical
// snapshots produce an empty string.
func unifiedDiff(path string, left, right snapshot) (string, error) {
	if left.exists == right.exists && bytes.Equal(left.data, right.data) {
		return "", nil
	}

	fromFile, toFile := "a/"+path, "b/"+path
	if !left.exists {
		fromFile = devNull
	}
	if !right.exists {
		toFile = devNull
	}

	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)

	if isBinary(left.data) || isBinary(right.data) {
		fmt.Fprintf(&b, "Binary files %s and %s differ\n", fromFile, toFile)
		return b.String(), nil
	}

	body, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(left.data),
		B:        splitLines(right.data),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  contextLines,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff %s: %w", path, err)
	}

	if body == "" {
		// Only existence differs, e.g. an empty file was added.
		fmt.Fprintf(&b, "--- %s\n+++ %s\n", fromFile, toFile)
		return b.String(), nil
	}

	b.WriteString(body)

	return b.String(), nil
}

// splitLines keeps line terminators and marks a missing final newline the
// way git does, so "a" and "a\n" differ.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}

	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}

	lines[len(lines)-1] += "\n" + noNewline

	return lines
}
