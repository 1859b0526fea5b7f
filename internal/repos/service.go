package repos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chigichan24/duff/internal/git"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	store  *Store
	opener git.Opener
	config Config

	logger *zap.Logger
}

func NewService(store *Store, opener git.Opener, config Config, logger *zap.Logger) *Service {
	if config.DefaultPollInterval <= 0 {
		config.DefaultPollInterval = defaultPollInterval
	}

	return &Service{
		store:  store,
		opener: opener,
		config: config,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]Repository, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Repository, error) {
	return s.store.Get(ctx, id)
}

// Path returns the working tree of a registered repository.
func (s *Service) Path(ctx context.Context, id uuid.UUID) (string, error) {
	repo, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	return repo.Path, nil
}

// Add registers the working copy containing draft.Path. The stored path is
// the top level of the working tree with symlinks resolved.
func (s *Service) Add(ctx context.Context, draft RepositoryDraft) (*Repository, error) {
	root, err := s.canonicalize(ctx, draft.Path)
	if err != nil {
		return nil, err
	}

	repo := Repository{
		ID:           RepositoryID(root),
		Name:         strings.TrimSpace(draft.Name),
		Path:         root,
		PollInterval: draft.PollInterval,
	}
	if repo.Name == "" {
		repo.Name = filepath.Base(root)
	}
	if repo.PollInterval == 0 {
		repo.PollInterval = s.config.DefaultPollInterval
	}
	if repo.PollInterval < minPollInterval {
		return nil, fmt.Errorf("%w: poll interval must be at least %s", ErrInvalidInput, minPollInterval)
	}

	created, err := s.store.Create(ctx, repo)
	if err != nil {
		return nil, err
	}

	s.logger.Info("repository registered",
		zap.Stringer("id", created.ID),
		zap.String("path", created.Path),
	)

	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, update RepositoryUpdate) (*Repository, error) {
	return s.store.Update(ctx, id, func(r *Repository) error {
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
			}
			r.Name = name
		}

		if update.PollInterval != nil {
			if *update.PollInterval < minPollInterval {
				return fmt.Errorf("%w: poll interval must be at least %s", ErrInvalidInput, minPollInterval)
			}
			r.PollInterval = *update.PollInterval
		}

		return nil
	})
}

func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("repository removed", zap.Stringer("id", id))

	return nil
}

func (s *Service) Reorder(ctx context.Context, ids []uuid.UUID) ([]Repository, error) {
	if err := s.store.Reorder(ctx, ids); err != nil {
		return nil, err
	}

	return s.store.List(ctx)
}

func (s *Service) canonicalize(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidInput)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
	}

	if info, statErr := os.Stat(resolved); statErr != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
	}

	b, err := s.opener.Open(ctx, resolved)
	if errors.Is(err, git.ErrNotARepository) {
		return "", fmt.Errorf("%w: %s", ErrNotAGitRepository, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}
	defer b.Close()

	root, err := filepath.EvalSymlinks(b.Root())
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, b.Root())
	}

	return root, nil
}
