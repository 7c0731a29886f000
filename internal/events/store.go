package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/models"
)

// Store is the event persistence contract consumed by handlers. Repository
// is the PostgreSQL implementation.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByCode(ctx context.Context, code string) (*models.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Event, error)
	HasModeratorAccess(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	GrantAccess(ctx context.Context, eventID, userID uuid.UUID, role string) error
}

var _ Store = (*Repository)(nil)
