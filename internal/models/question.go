package models

import (
	"time"

	"github.com/google/uuid"
)

// Question moderation statuses. pending is the only non-terminal state.
const (
	QuestionStatusPending  = "pending"
	QuestionStatusApproved = "approved"
	QuestionStatusRejected = "rejected"
)

// Question is an anonymous audience submission awaiting moderation.
type Question struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	Content     string     `json:"content"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ModeratedBy *uuid.UUID `json:"moderated_by,omitempty"`
	ModeratedAt *time.Time `json:"moderated_at,omitempty"`
}
