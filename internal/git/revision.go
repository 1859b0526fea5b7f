package git

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var stashSelector = regexp.MustCompile(`^stash@\{(\d+)\}$`)

func validateRevision(rev string) error {
	if rev == "" || strings.HasPrefix(rev, "-") || strings.ContainsAny(rev, "\x00\r\n ") {
		return fmt.Errorf("%w: %q", ErrInvalidRevision, rev)
	}

	return nil
}

func parseStashSelector(rev string) (int, bool) {
	if rev == "stash" {
		return 0, true
	}

	m := stashSelector.FindStringSubmatch(rev)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return n, true
}

func shortHash(h string) string {
	if len(h) <= shortHashLen {
		return h
	}

	return h[:shortHashLen]
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimLeft(s, "\n"), "\n")
	return strings.TrimSpace(s)
}

// excludeSet matches directory names skipped during working tree scans.
type excludeSet map[string]struct{}

func newExcludeSet(names []string) excludeSet {
	s := excludeSet{".git": {}}
	for _, n := range names {
		n = strings.Trim(n, "/")
		if n != "" {
			s[n] = struct{}{}
		}
	}

	return s
}

func (s excludeSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// skips reports whether any directory of path is excluded.
func (s excludeSet) skips(path string) bool {
	dirs := strings.Split(path, "/")
	for _, d := range dirs[:len(dirs)-1] {
		if s.has(d) {
			return true
		}
	}

	return false
}

func (s excludeSet) filter(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if !s.skips(p) {
			out = append(out, p)
		}
	}

	return out
}

func splitNUL(out []byte) []string {
	fields := bytes.Split(out, []byte{0})
	res := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 0 {
			res = append(res, string(f))
		}
	}

	return res
}

func sortedUnique(paths []string) []string {
	slices.Sort(paths)
	return slices.Compact(paths)
}

type reflogEntry struct {
	Old     string
	New     string
	Message string
}

// parseReflog reads a reflog file. Entries keep file order, oldest first.
func parseReflog(data []byte) []reflogEntry {
	var entries []reflogEntry
	for line := range strings.SplitSeq(string(data), "\n") {
		head, msg, _ := strings.Cut(line, "\t")
		fields := strings.Fields(head)
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, reflogEntry{Old: fields[0], New: fields[1], Message: msg})
	}

	return entries
}
