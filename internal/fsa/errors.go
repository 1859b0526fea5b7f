package fsa

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("entry not found")
	ErrNotADirectory   = errors.New("not a directory")
	ErrTypeMismatch    = errors.New("entry type mismatch")
	ErrExist           = errors.New("entry already exists")
	ErrNotEmpty        = errors.New("directory not empty")
	ErrNotImplemented  = errors.New("operation not implemented")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidPath     = errors.New("invalid path")
	ErrInvalidEncoding = errors.New("unsupported text encoding")
)

// Code is a POSIX-style error code reported by the adapter.
type Code string

const (
	CodeNotFound       Code = "ENOENT"
	CodeNotADirectory  Code = "ENOTDIR"
	CodeExist          Code = "EEXIST"
	CodeNotEmpty       Code = "ENOTEMPTY"
	CodeAccessDenied   Code = "EACCES"
	CodeNotImplemented Code = "ENOSYS"
	CodeInvalid        Code = "EINVAL"
	CodeTypeMismatch   Code = "ETYPE"
	CodeIO             Code = "EIO"
)

// PathError records a failed adapter operation.
type PathError struct {
	Op   string
	Path string
	Code Code
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Code, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func codeOf(err error) Code {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotADirectory):
		return CodeNotADirectory
	case errors.Is(err, ErrTypeMismatch):
		return CodeTypeMismatch
	case errors.Is(err, ErrExist):
		return CodeExist
	case errors.Is(err, ErrNotEmpty):
		return CodeNotEmpty
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrInvalidPath), errors.Is(err, ErrInvalidEncoding):
		return CodeInvalid
	}

	return CodeIO
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}

	return &PathError{Op: op, Path: path, Code: codeOf(err), Err: err}
}
