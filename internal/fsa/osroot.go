package fsa

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const swapSuffix = ".crswap"

// RootHandle is the directory handle granted over a local directory.
// Every descendant handle is confined to it.
type RootHandle struct {
	*osDirectory
}

// OpenRoot grants a handle over dir. The caller closes it when done.
func OpenRoot(dir string) (*RootHandle, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open root %s: %w", dir, mapOSError(err))
	}

	return &RootHandle{
		osDirectory: &osDirectory{
			root: root,
			rel:  "",
			name: filepath.Base(dir),
		},
	}, nil
}

func (h *RootHandle) Close() error {
	return h.root.Close()
}

// Readlink returns the target of the symbolic link at the slash-separated
// path rel. ok is false when rel exists but is not a link.
func (h *RootHandle) Readlink(rel string) (target string, ok bool, err error) {
	info, err := h.root.Lstat(osPath(rel))
	if err != nil {
		return "", false, mapOSError(err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return "", false, nil
	}

	target, err = h.root.Readlink(osPath(rel))
	if err != nil {
		return "", false, mapOSError(err)
	}

	return filepath.ToSlash(target), true, nil
}

type osDirectory struct {
	root *os.Root
	rel  string
	name string
}

func (d *osDirectory) Kind() Kind {
	return KindDirectory
}

func (d *osDirectory) Name() string {
	return d.name
}

// GetDirectoryHandle implements DirectoryHandle.
func (d *osDirectory) GetDirectoryHandle(ctx context.Context, name string, opts GetOptions) (DirectoryHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := d.child(name)
	if err != nil {
		return nil, err
	}

	info, err := d.root.Stat(osPath(p))
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a file", ErrTypeMismatch, p)
		}
	case errors.Is(err, fs.ErrNotExist) && opts.Create:
		if mkErr := d.root.Mkdir(osPath(p), 0o755); mkErr != nil && !errors.Is(mkErr, fs.ErrExist) {
			return nil, mapOSError(mkErr)
		}
	default:
		return nil, mapOSError(err)
	}

	return &osDirectory{root: d.root, rel: p, name: name}, nil
}

// GetFileHandle implements DirectoryHandle.
func (d *osDirectory) GetFileHandle(ctx context.Context, name string, opts GetOptions) (FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := d.child(name)
	if err != nil {
		return nil, err
	}

	info, err := d.root.Stat(osPath(p))
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrTypeMismatch, p)
		}
	case errors.Is(err, fs.ErrNotExist) && opts.Create:
		f, crErr := d.root.OpenFile(osPath(p), os.O_WRONLY|os.O_CREATE, 0o644)
		if crErr != nil {
			return nil, mapOSError(crErr)
		}
		if clErr := f.Close(); clErr != nil {
			return nil, mapOSError(clErr)
		}
	default:
		return nil, mapOSError(err)
	}

	return &osFile{root: d.root, rel: p, name: name}, nil
}

// Entries implements DirectoryHandle. Swap files of in-flight writes are
// hidden. Symbolic links are listed as files and never followed.
func (d *osDirectory) Entries(ctx context.Context) ([]Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := d.root.Open(osPath(d.rel))
	if err != nil {
		return nil, mapOSError(err)
	}
	defer dir.Close()

	dirents, err := dir.ReadDir(-1)
	if err != nil {
		return nil, mapOSError(err)
	}

	handles := make([]Handle, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if strings.HasSuffix(name, swapSuffix) {
			continue
		}

		p := joinRel(d.rel, name)
		if de.IsDir() {
			handles = append(handles, &osDirectory{root: d.root, rel: p, name: name})
		} else {
			handles = append(handles, &osFile{root: d.root, rel: p, name: name})
		}
	}

	return handles, nil
}

// RemoveEntry implements DirectoryHandle.
func (d *osDirectory) RemoveEntry(ctx context.Context, name string, opts RemoveOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := d.child(name)
	if err != nil {
		return err
	}

	if _, stErr := d.root.Lstat(osPath(p)); stErr != nil {
		return mapOSError(stErr)
	}

	if opts.Recursive {
		err = d.root.RemoveAll(osPath(p))
	} else {
		err = d.root.Remove(osPath(p))
	}

	return mapOSError(err)
}

func (d *osDirectory) child(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
		return "", fmt.Errorf("%w: %q is not a valid entry name", ErrInvalidPath, name)
	}

	return joinRel(d.rel, name), nil
}

type osFile struct {
	root *os.Root
	rel  string
	name string
}

func (f *osFile) Kind() Kind {
	return KindFile
}

func (f *osFile) Name() string {
	return f.name
}

// GetFile implements FileHandle.
func (f *osFile) GetFile(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := f.root.Stat(osPath(f.rel))
	if err != nil {
		return nil, mapOSError(err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrTypeMismatch, f.rel)
	}

	return &fileSnapshot{
		root:    f.root,
		rel:     f.rel,
		name:    f.name,
		size:    info.Size(),
		modTime: info.ModTime(),
	}, nil
}

// CreateWritable implements FileHandle.
func (f *osFile) CreateWritable(ctx context.Context) (WritableFileStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	swap := f.rel + "." + uuid.NewString()[:8] + swapSuffix
	out, err := f.root.OpenFile(osPath(swap), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, mapOSError(err)
	}

	if info, stErr := f.root.Stat(osPath(f.rel)); stErr == nil {
		_ = f.root.Chmod(osPath(swap), info.Mode().Perm())
	}

	return &swapWriter{
		root:   f.root,
		file:   out,
		swap:   swap,
		target: f.rel,
	}, nil
}

type fileSnapshot struct {
	root    *os.Root
	rel     string
	name    string
	size    int64
	modTime time.Time
}

func (s *fileSnapshot) Name() string            { return s.name }
func (s *fileSnapshot) Size() int64             { return s.size }
func (s *fileSnapshot) LastModified() time.Time { return s.modTime }

func (s *fileSnapshot) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.root.ReadFile(osPath(s.rel))
	if err != nil {
		return nil, mapOSError(err)
	}

	return data, nil
}

type swapWriter struct {
	root   *os.Root
	file   *os.File
	swap   string
	target string
	done   bool
}

func (w *swapWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("write %s: %w", w.target, fs.ErrClosed)
	}

	n, err := w.file.Write(p)
	if err != nil {
		return n, mapOSError(err)
	}

	return n, nil
}

// Close publishes the written content by renaming the swap file over the target.
func (w *swapWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.file.Close(); err != nil {
		_ = w.root.Remove(osPath(w.swap))
		return mapOSError(err)
	}

	if err := w.root.Rename(osPath(w.swap), osPath(w.target)); err != nil {
		_ = w.root.Remove(osPath(w.swap))
		return mapOSError(err)
	}

	return nil
}

// Abort discards the written content and leaves the target untouched.
func (w *swapWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	_ = w.file.Close()

	return mapOSError(w.root.Remove(osPath(w.swap)))
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}

	return rel + "/" + name
}

func osPath(rel string) string {
	if rel == "" {
		return "."
	}

	return filepath.FromSlash(rel)
}

func mapOSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	case errors.Is(err, syscall.ENOTEMPTY):
		return fmt.Errorf("%w: %w", ErrNotEmpty, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %w", ErrExist, err)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %w", ErrNotADirectory, err)
	}

	return err
}

var (
	_ DirectoryHandle = (*osDirectory)(nil)
	_ FileHandle      = (*osFile)(nil)
)
