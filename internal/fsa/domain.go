package fsa

import (
	"context"
	"io"
	"time"
)

// Kind of a handle.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

type GetOptions struct {
	Create bool
}

type RemoveOptions struct {
	Recursive bool
}

// Handle is a capability-scoped reference to a directory entry.
type Handle interface {
	Kind() Kind
	Name() string
}

// DirectoryHandle grants access to a directory and, by name, to its children.
type DirectoryHandle interface {
	Handle

	GetDirectoryHandle(ctx context.Context, name string, opts GetOptions) (DirectoryHandle, error)
	GetFileHandle(ctx context.Context, name string, opts GetOptions) (FileHandle, error)
	Entries(ctx context.Context) ([]Handle, error)
	RemoveEntry(ctx context.Context, name string, opts RemoveOptions) error
}

// FileHandle grants access to a single file.
type FileHandle interface {
	Handle

	GetFile(ctx context.Context) (File, error)
	CreateWritable(ctx context.Context) (WritableFileStream, error)
}

// File is a point-in-time snapshot of a file's metadata with lazy content access.
type File interface {
	Name() string
	Size() int64
	LastModified() time.Time
	Bytes(ctx context.Context) ([]byte, error)
}

// WritableFileStream buffers writes and publishes them atomically on Close.
type WritableFileStream interface {
	io.Writer

	Close() error
	Abort() error
}

// Stat describes an entry as returned by Adapter.Stat.
type Stat struct {
	Name        string
	IsFile      bool
	IsDirectory bool
	Size        int64
	ModTime     time.Time
}
