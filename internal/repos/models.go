package repos

import (
	"encoding/json"
	"time"

	"github.com/chigichan24/duff/pkg/badgerfx"
)

const (
	prefix = "repository:"

	prefixByID   = prefix + "id:"
	prefixByPath = prefix + "path:"
)

type repositoryModel struct {
	badgerfx.BaseEntity

	Name         string `json:"name"`
	Path         string `json:"path"`
	PollInterval int64  `json:"poll_interval"` // seconds
	Position     int    `json:"position"`
}

func keyByID(id string) string {
	return prefixByID + id
}

func newRepositoryModel(r *Repository) *repositoryModel {
	return &repositoryModel{
		BaseEntity: badgerfx.BaseEntity{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Name:         r.Name,
		Path:         r.Path,
		PollInterval: int64(r.PollInterval / time.Second),
		Position:     r.Position,
	}
}

func newRepository(m *repositoryModel) *Repository {
	return &Repository{
		ID:           m.ID,
		Name:         m.Name,
		Path:         m.Path,
		PollInterval: time.Duration(m.PollInterval) * time.Second,
		Position:     m.Position,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// StorageKey implements badgerfx.Entity.
func (m *repositoryModel) StorageKey() string {
	return keyByID(m.ID.String())
}

// StorageIndexes implements badgerfx.Entity.
func (m *repositoryModel) StorageIndexes() []string {
	return []string{prefixByPath + m.Path}
}

// MarshalStorage implements badgerfx.Entity.
func (m *repositoryModel) MarshalStorage() ([]byte, error) {
	return json.Marshal(m) //nolint:wrapcheck
}

// UnmarshalStorage implements badgerfx.Entity.
func (m *repositoryModel) UnmarshalStorage(data []byte) error {
	return json.Unmarshal(data, m) //nolint:wrapcheck
}

var _ badgerfx.Entity = (*repositoryModel)(nil)
