package changes

import (
	"context"
	"fmt"

	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/revrange"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service resolves registered repositories and runs Resolver queries on
// them. Every call opens its own backend.
type Service struct {
	registry Registry
	opener   git.Opener
	resolver *Resolver

	logger *zap.Logger
}

func NewService(registry Registry, opener git.Opener, resolver *Resolver, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		opener:   opener,
		resolver: resolver,
		logger:   logger,
	}
}

func (s *Service) Status(ctx context.Context, id uuid.UUID) (RepoStatus, error) {
	return withBackend(ctx, s, id, func(b git.Backend) (RepoStatus, error) {
		return s.resolver.Status(ctx, b)
	})
}

func (s *Service) Log(ctx context.Context, id uuid.UUID) ([]git.Commit, error) {
	return withBackend(ctx, s, id, func(b git.Backend) ([]git.Commit, error) {
		return s.resolver.Log(ctx, b)
	})
}

func (s *Service) Files(ctx context.Context, id uuid.UUID, rng revrange.Range) ([]string, error) {
	return withBackend(ctx, s, id, func(b git.Backend) ([]string, error) {
		return s.resolver.Files(ctx, b, rng)
	})
}

func (s *Service) Diff(ctx context.Context, id uuid.UUID, file string, rng revrange.Range) (string, error) {
	return withBackend(ctx, s, id, func(b git.Backend) (string, error) {
		return s.resolver.Diff(ctx, b, file, rng)
	})
}

func (s *Service) Content(ctx context.Context, id uuid.UUID, file, version string) (Content, error) {
	// Refuse escaping paths before the repository is even looked up.
	if _, err := ValidatePath(file); err != nil {
		return Content{}, err
	}

	return withBackend(ctx, s, id, func(b git.Backend) (Content, error) {
		data, err := s.resolver.Content(ctx, b, file, version)
		if err != nil {
			return Content{}, err
		}

		return Content{
			Data:     data,
			MIMEType: mimetype.Detect(data).String(),
		}, nil
	})
}

// Select applies an optional click to sel and resolves the result against
// the repository history.
func (s *Service) Select(
	ctx context.Context,
	id uuid.UUID,
	sel revrange.Selection,
	click *revrange.Endpoint,
	shift bool,
) (SelectionResult, error) {
	if click != nil {
		sel = sel.Click(*click, shift)
	}

	return withBackend(ctx, s, id, func(b git.Backend) (SelectionResult, error) {
		history, err := s.resolver.Log(ctx, b)
		if err != nil {
			return SelectionResult{}, err
		}

		rng, err := revrange.Resolve(sel, history)
		if err != nil {
			return SelectionResult{}, err //nolint:wrapcheck
		}

		files, err := s.resolver.Files(ctx, b, rng)
		if err != nil {
			return SelectionResult{}, err
		}

		return SelectionResult{
			Selection: sel,
			Range:     rng,
			Files:     files,
		}, nil
	})
}

func withBackend[T any](ctx context.Context, s *Service, id uuid.UUID, fn func(b git.Backend) (T, error)) (T, error) {
	var zero T

	path, err := s.registry.Path(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("failed to locate repository: %w", err)
	}

	b, err := s.opener.Open(ctx, path)
	if err != nil {
		return zero, fmt.Errorf("failed to open repository %s: %w", id, err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			s.logger.Warn("failed to close repository", zap.Stringer("id", id), zap.Error(closeErr))
		}
	}()

	return fn(b)
}
