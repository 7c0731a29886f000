package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event lifecycle statuses. Transitions are monotonic: draft -> active -> ended.
const (
	EventStatusDraft  = "draft"
	EventStatusActive = "active"
	EventStatusEnded  = "ended"
)

// EventSettings holds per-event feature toggles surfaced to clients.
type EventSettings struct {
	QAEnabled    bool `json:"qa_enabled"`
	PollsEnabled bool `json:"polls_enabled"`
	// QuestionMaxLen is the bound advertised to the participant UI. The
	// server always enforces its own ceiling regardless of this value.
	QuestionMaxLen int `json:"question_max_len,omitempty"`
}

// DefaultEventSettings returns the settings applied when an event is created
// without an explicit settings payload.
func DefaultEventSettings() EventSettings {
	return EventSettings{QAEnabled: true, PollsEnabled: true, QuestionMaxLen: 280}
}

// FeatureEnabled reads a boolean toggle from a settings blob. Absent or
// malformed settings leave features enabled.
func FeatureEnabled(settings json.RawMessage, key string) bool {
	if len(settings) == 0 {
		return true
	}
	var m map[string]interface{}
	if err := json.Unmarshal(settings, &m); err != nil {
		return true
	}
	if v, ok := m[key].(bool); ok {
		return v
	}
	return true
}

// Event is one engagement session joined by a public code.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	EventCode string          `json:"event_code"`
	CreatedBy uuid.UUID       `json:"created_by"`
	Status    string          `json:"status"`
	Settings  json.RawMessage `json:"settings"`
	StartsAt  *time.Time      `json:"starts_at,omitempty"`
	EndsAt    *time.Time      `json:"ends_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PublicEvent is the display-safe projection returned by the unauthenticated
// code lookup. It must never carry the owner identity.
type PublicEvent struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Status   string          `json:"status"`
	Settings json.RawMessage `json:"settings"`
	StartsAt *time.Time      `json:"starts_at,omitempty"`
}

// Public returns the display-safe projection of e.
func (e *Event) Public() PublicEvent {
	return PublicEvent{
		ID:       e.ID,
		Name:     e.Name,
		Status:   e.Status,
		Settings: e.Settings,
		StartsAt: e.StartsAt,
	}
}

// EventAccess grants a user a role on a single event.
type EventAccess struct {
	UserID    uuid.UUID `json:"user_id"`
	EventID   uuid.UUID `json:"event_id"`
	Role      string    `json:"role"` // "moderator" or "viewer"
	CreatedAt time.Time `json:"created_at"`
}
