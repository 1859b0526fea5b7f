package fsa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Adapter exposes a path-based filesystem over a DirectoryHandle.
//
// Paths are slash-separated and relative to the root handle. Empty and "."
// segments are ignored and ".." is rejected. Resolved directory handles are
// cached for the lifetime of the adapter; ClearCache drops them.
type Adapter struct {
	root DirectoryHandle
	dirs sync.Map
}

func New(root DirectoryHandle) *Adapter {
	return &Adapter{
		root: root,
	}
}

// ReadFile returns the raw bytes of the file at name.
func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, err := a.readFile(ctx, name)
	if err != nil {
		return nil, wrap("readFile", name, err)
	}

	return data, nil
}

// ReadTextFile decodes the file at name using a WHATWG encoding label.
// An empty label means utf-8. A byte order mark overrides the label.
func (a *Adapter) ReadTextFile(ctx context.Context, name, label string) (string, error) {
	if label == "" {
		label = "utf-8"
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", wrap("readFile", name, fmt.Errorf("%w: %s", ErrInvalidEncoding, label))
	}

	data, err := a.readFile(ctx, name)
	if err != nil {
		return "", wrap("readFile", name, err)
	}

	text, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return "", wrap("readFile", name, fmt.Errorf("%w: %w", ErrInvalidEncoding, err))
	}

	return string(text), nil
}

func (a *Adapter) readFile(ctx context.Context, name string) ([]byte, error) {
	fh, err := a.fileHandle(ctx, name, false)
	if err != nil {
		return nil, err
	}

	file, err := fh.GetFile(ctx)
	if err != nil {
		return nil, err
	}

	return file.Bytes(ctx)
}

// WriteFile replaces the content of the file at name, creating it and any
// missing parent directories.
func (a *Adapter) WriteFile(ctx context.Context, name string, data []byte) error {
	fh, err := a.fileHandle(ctx, name, true)
	if err != nil {
		return wrap("writeFile", name, err)
	}

	w, err := fh.CreateWritable(ctx)
	if err != nil {
		return wrap("writeFile", name, err)
	}

	if _, wrErr := w.Write(data); wrErr != nil {
		_ = w.Abort()
		return wrap("writeFile", name, wrErr)
	}

	return wrap("writeFile", name, w.Close())
}

// ReadDir lists the names of the children of the directory at name.
func (a *Adapter) ReadDir(ctx context.Context, name string) ([]string, error) {
	segs, err := split(name)
	if err != nil {
		return nil, wrap("readdir", name, err)
	}

	dir, err := a.dir(ctx, segs, false, false)
	if err != nil {
		return nil, wrap("readdir", name, err)
	}

	entries, err := dir.Entries(ctx)
	if err != nil {
		return nil, wrap("readdir", name, err)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}

	return names, nil
}

// DirEntry is a child name with its kind.
type DirEntry struct {
	Name string
	Kind Kind
}

// ReadDirEntries is ReadDir with entry kinds, saving a Stat per child.
func (a *Adapter) ReadDirEntries(ctx context.Context, name string) ([]DirEntry, error) {
	segs, err := split(name)
	if err != nil {
		return nil, wrap("readdir", name, err)
	}

	dir, err := a.dir(ctx, segs, false, false)
	if err != nil {
		return nil, wrap("readdir", name, err)
	}

	entries, err := dir.Entries(ctx)
	if err != nil {
		return nil, wrap("readdir", name, err)
	}

	prefix := strings.Join(segs, "/")
	out := make([]DirEntry, len(entries))
	for i, e := range entries {
		out[i] = DirEntry{Name: e.Name(), Kind: e.Kind()}
		if sub, ok := e.(DirectoryHandle); ok {
			a.dirs.Store(strings.TrimPrefix(prefix+"/"+e.Name(), "/"), sub)
		}
	}

	return out, nil
}

// Stat describes the entry at name. The root is a synthetic directory.
func (a *Adapter) Stat(ctx context.Context, name string) (Stat, error) {
	segs, err := split(name)
	if err != nil {
		return Stat{}, wrap("stat", name, err)
	}

	if len(segs) == 0 {
		return Stat{Name: "", IsDirectory: true}, nil
	}

	parent, err := a.dir(ctx, segs[:len(segs)-1], false, true)
	if err != nil {
		return Stat{}, wrap("stat", name, err)
	}

	base := segs[len(segs)-1]
	fh, err := parent.GetFileHandle(ctx, base, GetOptions{})
	switch {
	case err == nil:
		file, fErr := fh.GetFile(ctx)
		if fErr != nil {
			return Stat{}, wrap("stat", name, fErr)
		}

		return Stat{
			Name:    base,
			IsFile:  true,
			Size:    file.Size(),
			ModTime: file.LastModified(),
		}, nil
	case errors.Is(err, ErrTypeMismatch):
		if _, dErr := a.dir(ctx, segs, false, false); dErr != nil {
			return Stat{}, wrap("stat", name, dErr)
		}

		return Stat{Name: base, IsDirectory: true}, nil
	default:
		return Stat{}, wrap("stat", name, err)
	}
}

// Lstat is Stat: links are not distinguished.
func (a *Adapter) Lstat(ctx context.Context, name string) (Stat, error) {
	return a.Stat(ctx, name)
}

// Mkdir creates the directory at name. Its parent must exist.
func (a *Adapter) Mkdir(ctx context.Context, name string) error {
	segs, err := split(name)
	if err != nil {
		return wrap("mkdir", name, err)
	}
	if len(segs) == 0 {
		return wrap("mkdir", name, ErrExist)
	}

	parent, err := a.dir(ctx, segs[:len(segs)-1], false, true)
	if err != nil {
		return wrap("mkdir", name, err)
	}

	base := segs[len(segs)-1]
	_, err = parent.GetDirectoryHandle(ctx, base, GetOptions{})
	switch {
	case err == nil, errors.Is(err, ErrTypeMismatch):
		return wrap("mkdir", name, ErrExist)
	case !errors.Is(err, ErrNotFound):
		return wrap("mkdir", name, err)
	}

	dir, err := parent.GetDirectoryHandle(ctx, base, GetOptions{Create: true})
	if err != nil {
		return wrap("mkdir", name, err)
	}
	a.dirs.Store(strings.Join(segs, "/"), dir)

	return nil
}

// Unlink removes the file at name.
func (a *Adapter) Unlink(ctx context.Context, name string) error {
	segs, err := split(name)
	if err != nil {
		return wrap("unlink", name, err)
	}
	if len(segs) == 0 {
		return wrap("unlink", name, ErrTypeMismatch)
	}

	parent, err := a.dir(ctx, segs[:len(segs)-1], false, true)
	if err != nil {
		return wrap("unlink", name, err)
	}

	base := segs[len(segs)-1]
	if _, fErr := parent.GetFileHandle(ctx, base, GetOptions{}); fErr != nil {
		return wrap("unlink", name, fErr)
	}

	return wrap("unlink", name, parent.RemoveEntry(ctx, base, RemoveOptions{}))
}

// Rmdir removes the empty directory at name.
func (a *Adapter) Rmdir(ctx context.Context, name string) error {
	segs, err := split(name)
	if err != nil {
		return wrap("rmdir", name, err)
	}
	if len(segs) == 0 {
		return wrap("rmdir", name, fmt.Errorf("%w: cannot remove the root", ErrAccessDenied))
	}

	parent, err := a.dir(ctx, segs[:len(segs)-1], false, true)
	if err != nil {
		return wrap("rmdir", name, err)
	}

	base := segs[len(segs)-1]
	if _, dErr := parent.GetDirectoryHandle(ctx, base, GetOptions{}); dErr != nil {
		return wrap("rmdir", name, dErr)
	}

	if rmErr := parent.RemoveEntry(ctx, base, RemoveOptions{}); rmErr != nil {
		return wrap("rmdir", name, rmErr)
	}

	a.evict(strings.Join(segs, "/"))

	return nil
}

func (a *Adapter) Readlink(_ context.Context, name string) (string, error) {
	return "", wrap("readlink", name, ErrNotImplemented)
}

func (a *Adapter) Symlink(_ context.Context, target, name string) error {
	return wrap("symlink", name, fmt.Errorf("%w: link to %s", ErrNotImplemented, target))
}

// ClearCache drops every cached directory handle.
func (a *Adapter) ClearCache() {
	a.dirs.Clear()
}

func (a *Adapter) fileHandle(ctx context.Context, name string, create bool) (FileHandle, error) {
	segs, err := split(name)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: root is a directory", ErrTypeMismatch)
	}

	parent, err := a.dir(ctx, segs[:len(segs)-1], create, true)
	if err != nil {
		return nil, err
	}

	return parent.GetFileHandle(ctx, segs[len(segs)-1], GetOptions{Create: create})
}

// dir resolves segs one level at a time, starting from the deepest cached
// ancestor. When intermediate is set every segment is a path prefix of the
// requested entry, so a file in the way is reported as ErrNotADirectory.
func (a *Adapter) dir(ctx context.Context, segs []string, create, intermediate bool) (DirectoryHandle, error) {
	if len(segs) == 0 {
		return a.root, nil
	}

	if h, ok := a.dirs.Load(strings.Join(segs, "/")); ok {
		return h.(DirectoryHandle), nil //nolint:errcheck,forcetypeassert //only handles are stored
	}

	cur, start := a.root, 0
	for i := len(segs) - 1; i > 0; i-- {
		if h, ok := a.dirs.Load(strings.Join(segs[:i], "/")); ok {
			cur, start = h.(DirectoryHandle), i //nolint:errcheck,forcetypeassert //only handles are stored
			break
		}
	}

	for i := start; i < len(segs); i++ {
		next, err := cur.GetDirectoryHandle(ctx, segs[i], GetOptions{Create: create})
		if err != nil {
			if errors.Is(err, ErrTypeMismatch) && (intermediate || i < len(segs)-1) {
				return nil, fmt.Errorf("%w: %s", ErrNotADirectory, strings.Join(segs[:i+1], "/"))
			}
			return nil, err
		}

		a.dirs.Store(strings.Join(segs[:i+1], "/"), next)
		cur = next
	}

	return cur, nil
}

func (a *Adapter) evict(key string) {
	a.dirs.Range(func(k, _ any) bool {
		s, _ := k.(string)
		if s == key || strings.HasPrefix(s, key+"/") {
			a.dirs.Delete(k)
		}
		return true
	})
}

func split(name string) ([]string, error) {
	parts := strings.Split(name, "/")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: %q leaves the root", ErrInvalidPath, name)
		}
		segs = append(segs, s)
	}

	return segs, nil
}
