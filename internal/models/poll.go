package models

import (
	"time"

	"github.com/google/uuid"
)

// Poll kinds.
const (
	PollTypeSingle   = "single"
	PollTypeMultiple = "multiple"
)

// PollOption is one choice in a poll. The option set is fixed at creation
// and never mutated or reordered.
type PollOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Poll is a question with a fixed option set. At most one poll per event is
// active at any instant.
type Poll struct {
	ID          uuid.UUID    `json:"id"`
	EventID     uuid.UUID    `json:"event_id"`
	Question    string       `json:"question"`
	Options     []PollOption `json:"options"`
	PollType    string       `json:"poll_type"`
	Active      bool         `json:"active"`
	ActivatedAt *time.Time   `json:"activated_at,omitempty"`
	EndedAt     *time.Time   `json:"ended_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HasOption reports whether id is part of the poll's option set.
func (p *Poll) HasOption(id string) bool {
	for _, o := range p.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Vote is one session's choice set for a poll. Sessions are opaque
// client-generated identifiers; the server only stores and compares them.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	OptionIDs []string  `json:"option_ids"`
	SessionID string    `json:"session_id"`
	VotedAt   time.Time `json:"voted_at"`
}
