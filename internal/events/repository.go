package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdpulse/backend/internal/apperr"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/pkg/database"
)

const eventColumns = `id, name, event_code, created_by, status, settings, starts_at, ends_at, created_at`

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row, e *models.Event) error {
	return row.Scan(&e.ID, &e.Name, &e.EventCode, &e.CreatedBy, &e.Status, &e.Settings,
		&e.StartsAt, &e.EndsAt, &e.CreatedAt)
}

// Create inserts a new event. The join code is unique; a duplicate fails
// with Conflict.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (name, event_code, created_by, status, settings)
		VALUES ($1, $2, $3, 'draft', $4)
		RETURNING ` + eventColumns
	err := scanEvent(r.pool.QueryRow(ctx, q, e.Name, e.EventCode, e.CreatedBy, e.Settings), e)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("event code %q already exists: %w", e.EventCode, apperr.ErrConflict)
		}
		return fmt.Errorf("create event: %w", apperr.ErrUpstream)
	}
	return nil
}

// GetByCode returns the event with the given join code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_code = $1`
	var e models.Event
	if err := scanEvent(r.pool.QueryRow(ctx, q, code), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event code %q: %w", code, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get event by code: %w", apperr.ErrUpstream)
	}
	return &e, nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var e models.Event
	if err := scanEvent(r.pool.QueryRow(ctx, q, id), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get event: %w", apperr.ErrUpstream)
	}
	return &e, nil
}

// ListOwnedBy returns events created by the given user, newest first.
func (r *Repository) ListOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE created_by = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", apperr.ErrUpstream)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan event: %w", apperr.ErrUpstream)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", apperr.ErrUpstream)
	}
	return list, nil
}

// UpdateStatus performs a guarded status transition: the row is updated only
// if it still holds the expected current status, so concurrent transitions
// cannot skip backwards. Activation stamps starts_at, ending stamps ends_at.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (*models.Event, error) {
	const q = `UPDATE events SET status = $3,
			starts_at = CASE WHEN $3 = 'active' THEN COALESCE(starts_at, NOW()) ELSE starts_at END,
			ends_at   = CASE WHEN $3 = 'ended'  THEN NOW() ELSE ends_at END
		WHERE id = $1 AND status = $2
		RETURNING ` + eventColumns
	var e models.Event
	if err := scanEvent(r.pool.QueryRow(ctx, q, id, from, to), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event status changed concurrently: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("update event status: %w", apperr.ErrUpstream)
	}
	return &e, nil
}

// HasModeratorAccess reports whether the user was granted moderator access
// on the event via event_access.
func (r *Repository) HasModeratorAccess(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM event_access WHERE event_id = $1 AND user_id = $2 AND role = 'moderator'`
	var one int
	err := r.pool.QueryRow(ctx, q, eventID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check event access: %w", apperr.ErrUpstream)
	}
	return true, nil
}

// GrantAccess adds (or keeps) an event_access row.
func (r *Repository) GrantAccess(ctx context.Context, eventID, userID uuid.UUID, role string) error {
	const q = `INSERT INTO event_access (user_id, event_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, event_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := r.pool.Exec(ctx, q, userID, eventID, role); err != nil {
		return fmt.Errorf("grant access: %w", apperr.ErrUpstream)
	}
	return nil
}
