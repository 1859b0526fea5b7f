package repos

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/chigichan24/duff/pkg/badgerfx"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Store persists registered repositories in badger.
type Store struct {
	db       *badger.DB
	entities *badgerfx.Repository[*repositoryModel]
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
		entities: badgerfx.NewRepository(keyByID, func() *repositoryModel {
			return &repositoryModel{}
		}),
	}
}

// Create stores repo at the end of the list.
func (s *Store) Create(_ context.Context, repo Repository) (*Repository, error) {
	var created *Repository

	err := s.db.Update(func(txn *badger.Txn) error {
		exists, err := s.entities.Exists(txn, prefixByPath+repo.Path)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, repo.Path)
		}

		all, err := s.entities.List(txn, prefixByID, badger.DefaultIteratorOptions)
		if err != nil {
			return fmt.Errorf("failed to list repositories: %w", err)
		}

		now := time.Now()
		repo.Position = len(all)
		repo.CreatedAt = now
		repo.UpdatedAt = now

		if writeErr := s.entities.Write(txn, newRepositoryModel(&repo)); writeErr != nil {
			return fmt.Errorf("failed to store repository: %w", writeErr)
		}

		created = &repo
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return created, nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*Repository, error) {
	var repo *Repository

	err := s.db.View(func(txn *badger.Txn) error {
		m, err := s.read(txn, id)
		if err != nil {
			return err
		}

		repo = newRepository(m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return repo, nil
}

// List returns repositories in display order.
func (s *Store) List(_ context.Context) ([]Repository, error) {
	var models []*repositoryModel

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		models, err = s.entities.List(txn, prefixByID, badger.DefaultIteratorOptions)
		return err //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	slices.SortFunc(models, byPosition)

	repos := make([]Repository, 0, len(models))
	for _, m := range models {
		repos = append(repos, *newRepository(m))
	}

	return repos, nil
}

// Update applies updater to the stored repository. Path and id are fixed.
func (s *Store) Update(_ context.Context, id uuid.UUID, updater func(*Repository) error) (*Repository, error) {
	var updated *Repository

	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := s.read(txn, id)
		if err != nil {
			return err
		}

		repo := newRepository(old)
		if updErr := updater(repo); updErr != nil {
			return updErr
		}

		repo.ID = old.ID
		repo.Path = old.Path
		repo.CreatedAt = old.CreatedAt
		repo.UpdatedAt = time.Now()

		if writeErr := s.entities.Write(txn, newRepositoryModel(repo)); writeErr != nil {
			return fmt.Errorf("failed to store repository: %w", writeErr)
		}

		updated = repo
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update repository: %w", err)
	}

	return updated, nil
}

// Delete removes the repository and closes the gap it leaves in the order.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := s.read(txn, id); err != nil {
			return err
		}

		if delErr := s.entities.Delete(txn, id.String()); delErr != nil {
			return fmt.Errorf("failed to delete repository: %w", delErr)
		}

		rest, err := s.entities.List(txn, prefixByID, badger.DefaultIteratorOptions)
		if err != nil {
			return fmt.Errorf("failed to list repositories: %w", err)
		}
		slices.SortFunc(rest, byPosition)

		return s.renumber(txn, rest)
	})
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}

	return nil
}

// Reorder rewrites positions so ids come out in the given order. ids must
// list every stored repository exactly once.
func (s *Store) Reorder(_ context.Context, ids []uuid.UUID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		all, err := s.entities.List(txn, prefixByID, badger.DefaultIteratorOptions)
		if err != nil {
			return fmt.Errorf("failed to list repositories: %w", err)
		}

		byID := make(map[uuid.UUID]*repositoryModel, len(all))
		for _, m := range all {
			byID[m.ID] = m
		}

		if len(ids) != len(all) {
			return fmt.Errorf("%w: got %d ids for %d repositories", ErrInvalidOrder, len(ids), len(all))
		}

		ordered := make([]*repositoryModel, 0, len(ids))
		for _, id := range ids {
			m, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: unknown or repeated id %s", ErrInvalidOrder, id)
			}
			delete(byID, id)
			ordered = append(ordered, m)
		}

		return s.renumber(txn, ordered)
	})
	if err != nil {
		return fmt.Errorf("failed to reorder repositories: %w", err)
	}

	return nil
}

func (s *Store) read(txn *badger.Txn, id uuid.UUID) (*repositoryModel, error) {
	m, err := s.entities.Read(txn, id.String())
	if errors.Is(err, badgerfx.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read repository: %w", err)
	}

	return m, nil
}

// renumber assigns positions 0..n-1 following the order of models.
func (s *Store) renumber(txn *badger.Txn, models []*repositoryModel) error {
	for i, m := range models {
		if m.Position == i {
			continue
		}

		m.Position = i
		m.UpdatedAt = time.Now()
		if err := s.entities.Write(txn, m); err != nil {
			return fmt.Errorf("failed to store repository: %w", err)
		}
	}

	return nil
}

func byPosition(a, b *repositoryModel) int {
	return cmp.Or(
		cmp.Compare(a.Position, b.Position),
		a.CreatedAt.Compare(b.CreatedAt),
	)
}
