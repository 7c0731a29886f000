package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. Admins manage all events; moderators act on events they own
// or were granted access to.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// User is a host/moderator account. Participants are anonymous and have no
// user record.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}
