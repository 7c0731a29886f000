package polls

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

const pollColumns = `id, event_id, question, options, poll_type, active, activated_at, ended_at, created_at`

// Repository handles poll and vote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPoll(row pgx.Row, p *models.Poll) error {
	return row.Scan(&p.ID, &p.EventID, &p.Question, &p.Options, &p.PollType,
		&p.Active, &p.ActivatedAt, &p.EndedAt, &p.CreatedAt)
}

// Create inserts a new inactive poll.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	const q = `INSERT INTO polls (event_id, question, options, poll_type, active)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING ` + pollColumns
	if err := scanPoll(r.pool.QueryRow(ctx, q, p.EventID, p.Question, p.Options, p.PollType), p); err != nil {
		return fmt.Errorf("create poll: %w", apperr.ErrUpstream)
	}
	return nil
}

// GetByID returns a poll by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const q = `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`
	var p models.Poll
	if err := scanPoll(r.pool.QueryRow(ctx, q, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("poll %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get poll: %w", apperr.ErrUpstream)
	}
	return &p, nil
}

// ListByEvent returns all polls of an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Poll, error) {
	const q = `SELECT ` + pollColumns + ` FROM polls WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", apperr.ErrUpstream)
	}
	defer rows.Close()

	var list []models.Poll
	for rows.Next() {
		var p models.Poll
		if err := scanPoll(rows, &p); err != nil {
			return nil, fmt.Errorf("scan poll: %w", apperr.ErrUpstream)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list polls: %w", apperr.ErrUpstream)
	}
	return list, nil
}

// SetActive flips a poll's active flag. Activation runs in one transaction
// that first deactivates every other active poll of the event, then
// activates the target, so no instant exists with two active polls; the
// partial unique index on (event_id) WHERE active backstops the invariant
// against any path that bypasses this method. Returns every poll whose row
// changed (the target last).
func (r *Repository) SetActive(ctx context.Context, pollID, eventID uuid.UUID, active bool) ([]models.Poll, error) {
	if !active {
		const q = `UPDATE polls SET active = FALSE, ended_at = NOW()
			WHERE id = $1 AND active
			RETURNING ` + pollColumns
		var p models.Poll
		err := scanPoll(r.pool.QueryRow(ctx, q, pollID), &p)
		if errors.Is(err, pgx.ErrNoRows) {
			// already inactive
			existing, getErr := r.GetByID(ctx, pollID)
			if getErr != nil {
				return nil, getErr
			}
			return []models.Poll{*existing}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("deactivate poll: %w", apperr.ErrUpstream)
		}
		return []models.Poll{p}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", apperr.ErrUpstream)
	}
	defer tx.Rollback(ctx)

	var changed []models.Poll
	rows, err := tx.Query(ctx, `UPDATE polls SET active = FALSE, ended_at = NOW()
		WHERE event_id = $1 AND active AND id <> $2
		RETURNING `+pollColumns, eventID, pollID)
	if err != nil {
		return nil, fmt.Errorf("deactivate others: %w", apperr.ErrUpstream)
	}
	for rows.Next() {
		var p models.Poll
		if err := scanPoll(rows, &p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan poll: %w", apperr.ErrUpstream)
		}
		changed = append(changed, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deactivate others: %w", apperr.ErrUpstream)
	}

	var target models.Poll
	err = scanPoll(tx.QueryRow(ctx, `UPDATE polls SET active = TRUE, activated_at = NOW(), ended_at = NULL
		WHERE id = $1
		RETURNING `+pollColumns, pollID), &target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("poll %s: %w", pollID, apperr.ErrNotFound)
		}
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("another poll was activated concurrently: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("activate poll: %w", apperr.ErrUpstream)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", apperr.ErrUpstream)
	}
	return append(changed, target), nil
}

// InsertVote persists a vote. Validation of options against the poll happens
// in the handler; the one-vote-per-session rule is enforced here by the
// unique constraint on (poll_id, session_id), so concurrent double-submits
// resolve to exactly one row.
func (r *Repository) InsertVote(ctx context.Context, v *models.Vote) error {
	const q = `INSERT INTO poll_votes (poll_id, option_ids, session_id) VALUES ($1, $2, $3)
		RETURNING id, poll_id, option_ids, session_id, voted_at`
	err := r.pool.QueryRow(ctx, q, v.PollID, v.OptionIDs, v.SessionID).
		Scan(&v.ID, &v.PollID, &v.OptionIDs, &v.SessionID, &v.VotedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("already voted: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert vote: %w", apperr.ErrUpstream)
	}
	return nil
}

// VotesByPoll returns every vote for a poll, oldest first.
func (r *Repository) VotesByPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	const q = `SELECT id, poll_id, option_ids, session_id, voted_at
		FROM poll_votes WHERE poll_id = $1 ORDER BY voted_at ASC`
	rows, err := r.pool.Query(ctx, q, pollID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", apperr.ErrUpstream)
	}
	defer rows.Close()

	var list []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionIDs, &v.SessionID, &v.VotedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", apperr.ErrUpstream)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list votes: %w", apperr.ErrUpstream)
	}
	return list, nil
}

// ActiveByEvent returns the event's active poll, or nil when none is.
func (r *Repository) ActiveByEvent(ctx context.Context, eventID uuid.UUID) (*models.Poll, error) {
	const q = `SELECT ` + pollColumns + ` FROM polls WHERE event_id = $1 AND active`
	var p models.Poll
	err := scanPoll(r.pool.QueryRow(ctx, q, eventID), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active poll: %w", apperr.ErrUpstream)
	}
	return &p, nil
}
