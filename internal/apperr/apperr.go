// Package apperr defines the error taxonomy shared by repositories and
// handlers. Repositories return these sentinels (wrapped with context);
// handlers map them to HTTP responses.
package apperr

import "errors"

var (
	// ErrInvalidInput marks malformed, missing, or oversized fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized marks missing credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks insufficient credentials.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks an unknown code or id.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks duplicate votes, duplicate event codes, and lost
	// activation races.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState marks operations against an entity in the wrong
	// lifecycle state (moderating a non-pending question, voting on an
	// inactive poll).
	ErrInvalidState = errors.New("invalid state")
	// ErrUpstream marks durable-store or transport failures. Safe to retry
	// with backoff at the caller.
	ErrUpstream = errors.New("upstream failure")
)

// Kind returns the machine-readable kind string for err, or "internal" if
// the error is not part of the taxonomy.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}
