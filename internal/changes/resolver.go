package changes

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/revrange"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const headRevision = "HEAD"

// Resolver answers status, diff and content queries against any git.Backend.
type Resolver struct {
	config Config

	logger *zap.Logger
}

func NewResolver(config Config, logger *zap.Logger) *Resolver {
	if config.LogDepth <= 0 {
		config.LogDepth = DefaultLogDepth
	}

	return &Resolver{
		config: config,
		logger: logger,
	}
}

func (r *Resolver) Status(ctx context.Context, b git.Backend) (RepoStatus, error) {
	branch, err := b.CurrentBranch(ctx)
	if err != nil {
		return RepoStatus{}, fmt.Errorf("failed to get current branch: %w", err)
	}

	rows, err := b.StatusMatrix(ctx)
	if err != nil {
		return RepoStatus{}, fmt.Errorf("failed to get status: %w", err)
	}

	files := lo.FilterMap(rows, func(row git.StatusRow, _ int) (string, bool) {
		return row.Path, row.HasChanges()
	})
	files = lo.Uniq(files)
	slices.Sort(files)

	return RepoStatus{
		Branch:        branch,
		ModifiedFiles: files,
		HasChanges:    len(files) > 0,
		LastUpdate:    time.Now(),
	}, nil
}

func (r *Resolver) Log(ctx context.Context, b git.Backend) ([]git.Commit, error) {
	commits, err := b.Log(ctx, r.config.LogDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}

	return commits, nil
}

// Files lists the paths a diff over rng would cover. Without bounds it is
// the set of modified files reported by Status.
func (r *Resolver) Files(ctx context.Context, b git.Backend, rng revrange.Range) ([]string, error) {
	if rng.From == "" && rng.To == "" {
		status, err := r.Status(ctx, b)
		if err != nil {
			return nil, err
		}

		return status.ModifiedFiles, nil
	}

	files, err := b.ChangedFiles(ctx, lo.CoalesceOrEmpty(rng.From, headRevision), rng.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	return files, nil
}

// Diff returns a unified diff over rng, for file alone when it is set.
func (r *Resolver) Diff(ctx context.Context, b git.Backend, file string, rng revrange.Range) (string, error) {
	if file != "" {
		clean, err := ValidatePath(file)
		if err != nil {
			return "", err
		}

		return r.diffFile(ctx, b, clean, rng)
	}

	files, err := r.Files(ctx, b, rng)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, f := range files {
		d, diffErr := r.diffFile(ctx, b, f, rng)
		if diffErr != nil {
			return "", diffErr
		}
		sb.WriteString(d)
	}

	return sb.String(), nil
}

// Content returns the exact bytes of file at version, or on disk when
// version is empty.
func (r *Resolver) Content(ctx context.Context, b git.Backend, file, version string) ([]byte, error) {
	clean, err := ValidatePath(file)
	if err != nil {
		return nil, err
	}

	if version == "" {
		return b.ReadWorkingFile(ctx, clean) //nolint:wrapcheck
	}

	return b.ReadBlob(ctx, version, clean) //nolint:wrapcheck
}

func (r *Resolver) diffFile(ctx context.Context, b git.Backend, file string, rng revrange.Range) (string, error) {
	left, err := r.snapshot(ctx, b, file, lo.CoalesceOrEmpty(rng.From, headRevision))
	if err != nil {
		return "", err
	}

	right, err := r.snapshot(ctx, b, file, rng.To)
	if err != nil {
		return "", err
	}

	return unifiedDiff(file, left, right)
}

// snapshot reads file at rev, or on disk when rev is empty. Anything short
// of a malformed revision or a cancelled request degrades to a missing side.
func (r *Resolver) snapshot(ctx context.Context, b git.Backend, file, rev string) (snapshot, error) {
	var (
		data []byte
		err  error
	)
	if rev == "" {
		data, err = b.ReadWorkingFile(ctx, file)
	} else {
		data, err = b.ReadBlob(ctx, rev, file)
	}

	switch {
	case err == nil:
		return snapshot{data: data, exists: true}, nil
	case errors.Is(err, git.ErrInvalidRevision):
		return snapshot{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case ctx.Err() != nil:
		return snapshot{}, ctx.Err()
	}

	if !errors.Is(err, git.ErrFileNotFound) {
		r.logger.Debug("file side unavailable, treating as empty",
			zap.String("file", file),
			zap.String("revision", rev),
			zap.Error(err),
		)
	}

	return snapshot{}, nil
}

// ValidatePath cleans a repository-relative path. Paths that leave the
// working tree are refused before anything is read.
func ValidatePath(file string) (string, error) {
	if strings.TrimSpace(file) == "" || strings.ContainsRune(file, 0) {
		return "", fmt.Errorf("%w: file path is required", ErrInvalidInput)
	}

	if path.IsAbs(file) || strings.HasPrefix(file, `\`) {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, file)
	}

	clean := path.Clean(file)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, file)
	}
	if clean == "." {
		return "", fmt.Errorf("%w: %s is not a file", ErrInvalidInput, file)
	}

	return clean, nil
}
