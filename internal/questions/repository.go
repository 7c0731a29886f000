package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdpulse/backend/internal/apperr"
	"github.com/crowdpulse/backend/internal/models"
)

const questionColumns = `id, event_id, content, status, submitted_at, moderated_by, moderated_at`

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanQuestion(row pgx.Row, q *models.Question) error {
	return row.Scan(&q.ID, &q.EventID, &q.Content, &q.Status, &q.SubmittedAt, &q.ModeratedBy, &q.ModeratedAt)
}

// Create inserts a new pending question.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	const sql = `INSERT INTO questions (event_id, content, status) VALUES ($1, $2, 'pending')
		RETURNING ` + questionColumns
	if err := scanQuestion(r.pool.QueryRow(ctx, sql, q.EventID, q.Content), q); err != nil {
		return fmt.Errorf("create question: %w", apperr.ErrUpstream)
	}
	return nil
}

// GetByID returns a question by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	const sql = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	var q models.Question
	if err := scanQuestion(r.pool.QueryRow(ctx, sql, id), &q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get question: %w", apperr.ErrUpstream)
	}
	return &q, nil
}

// Moderate transitions a pending question to approved or rejected. The
// status guard is part of the UPDATE so concurrent decisions on the same
// question cannot both win; a non-pending question fails with InvalidState.
func (r *Repository) Moderate(ctx context.Context, id uuid.UUID, decision string, moderatorID uuid.UUID) (*models.Question, error) {
	const sql = `UPDATE questions SET status = $2, moderated_by = $3, moderated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + questionColumns
	var q models.Question
	err := scanQuestion(r.pool.QueryRow(ctx, sql, id, decision, moderatorID), &q)
	if err == nil {
		return &q, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("moderate question: %w", apperr.ErrUpstream)
	}
	// No pending row matched: missing question or one already decided.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("question already moderated: %w", apperr.ErrInvalidState)
}

// ListPending returns the moderation queue for an event, oldest first.
func (r *Repository) ListPending(ctx context.Context, eventID uuid.UUID) ([]models.Question, error) {
	const sql = `SELECT ` + questionColumns + ` FROM questions
		WHERE event_id = $1 AND status = 'pending'
		ORDER BY submitted_at ASC`
	return r.list(ctx, sql, eventID)
}

// ListApproved returns the display feed: most recently approved first,
// bounded by limit.
func (r *Repository) ListApproved(ctx context.Context, eventID uuid.UUID, limit int) ([]models.Question, error) {
	const sql = `SELECT ` + questionColumns + ` FROM questions
		WHERE event_id = $1 AND status = 'approved'
		ORDER BY moderated_at DESC
		LIMIT $2`
	return r.list(ctx, sql, eventID, limit)
}

func (r *Repository) list(ctx context.Context, sql string, args ...interface{}) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", apperr.ErrUpstream)
	}
	defer rows.Close()

	var list []models.Question
	for rows.Next() {
		var q models.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, fmt.Errorf("scan question: %w", apperr.ErrUpstream)
		}
		list = append(list, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", apperr.ErrUpstream)
	}
	return list, nil
}
