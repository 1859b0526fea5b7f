package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/chigichan24/duff/internal/fsa"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
)

// worktreeWalker lists working tree files through the filesystem adapter.
// Untracked paths matched by .gitignore are left out, tracked paths never are.
type worktreeWalker struct {
	fs      *fsa.Adapter
	exclude excludeSet
	tracked map[string]struct{}
	dirs    map[string]struct{}
}

func newWorktreeWalker(fs *fsa.Adapter, exclude excludeSet, tracked ...[]string) *worktreeWalker {
	w := &worktreeWalker{
		fs:      fs,
		exclude: exclude,
		tracked: map[string]struct{}{},
		dirs:    map[string]struct{}{},
	}

	for _, paths := range tracked {
		for _, p := range paths {
			w.tracked[p] = struct{}{}
			for i := strings.LastIndexByte(p, '/'); i > 0; i = strings.LastIndexByte(p[:i], '/') {
				w.dirs[p[:i]] = struct{}{}
			}
		}
	}

	return w
}

func (w *worktreeWalker) Walk(ctx context.Context) (map[string]struct{}, error) {
	files := map[string]struct{}{}

	var patterns []gitignore.Pattern
	if data, err := w.fs.ReadFile(ctx, ".git/info/exclude"); err == nil {
		patterns = parseIgnore(data, nil)
	}

	if err := w.walkDir(ctx, "", nil, patterns, files); err != nil {
		return nil, err
	}

	return files, nil
}

func (w *worktreeWalker) walkDir(
	ctx context.Context,
	dir string,
	domain []string,
	inherited []gitignore.Pattern,
	files map[string]struct{},
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := w.fs.ReadDirEntries(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %q: %w", dir, err)
	}

	patterns := inherited
	if data, rdErr := w.fs.ReadFile(ctx, join(dir, ".gitignore")); rdErr == nil {
		patterns = append(append([]gitignore.Pattern{}, inherited...), parseIgnore(data, domain)...)
	}
	matcher := gitignore.NewMatcher(patterns)

	for _, e := range entries {
		p := join(dir, e.Name)
		segs := append(append([]string{}, domain...), e.Name)

		if e.Kind == fsa.KindDirectory {
			if w.exclude.has(e.Name) {
				continue
			}
			if _, ok := w.dirs[p]; !ok && matcher.Match(segs, true) {
				continue
			}
			if wErr := w.walkDir(ctx, p, segs, patterns, files); wErr != nil {
				return wErr
			}
			continue
		}

		if _, ok := w.tracked[p]; !ok && matcher.Match(segs, false) {
			continue
		}
		files[p] = struct{}{}
	}

	return nil
}

func parseIgnore(data []byte, domain []string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}

	return patterns
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}

	return dir + "/" + name
}
