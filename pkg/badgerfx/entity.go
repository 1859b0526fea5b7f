package badgerfx

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("entity not found")

// Entity is a value stored under its own key. Indexes are extra keys whose
// value is the entity key.
type Entity interface {
	StorageKey() string
	StorageIndexes() []string

	MarshalStorage() ([]byte, error)
	UnmarshalStorage(data []byte) error
}

// KeyFunc maps an entity id to its storage key.
type KeyFunc func(id string) string

// BaseEntity holds the identity and timestamps shared by stored entities.
type BaseEntity struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
