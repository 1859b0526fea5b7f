package repos

import (
	"time"

	"github.com/google/uuid"
)

// POSTRequest represents the request payload for registering a repository.
type POSTRequest struct {
	Path         string `json:"path"          validate:"required,max=4096"`
	Name         string `json:"name"          validate:"max=100"`
	PollInterval int    `json:"poll_interval" validate:"omitempty,min=1,max=86400"` // seconds
}

// PATCHRequest represents the request payload for updating a repository.
type PATCHRequest struct {
	Name         *string `json:"name,omitempty"          validate:"omitempty,min=1,max=100"`
	PollInterval *int    `json:"poll_interval,omitempty" validate:"omitempty,min=1,max=86400"`
}

// PUTOrderRequest lists every repository id in the new display order.
type PUTOrderRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required"`
}

type RepositoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	PollInterval int       `json:"poll_interval"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
