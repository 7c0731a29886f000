package events

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/middleware"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/pkg/response"
)

// ContextEvent is the gin context key holding the resolved *models.Event
// after RequireEventAccess runs.
const ContextEvent = "event"

// RequireEventAccess validates that the caller may moderate the event in the
// :id path param: the owner, a global admin, or a user granted moderator
// access. Call after JWT. The resolved event is stored in the context.
func RequireEventAccess(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid event id")
			c.Abort()
			return
		}
		e, err := store.GetByID(c.Request.Context(), eventID)
		if err != nil {
			response.Error(c, err, "event not found")
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		role, _ := c.Get(middleware.ContextUserRole)

		if role != models.RoleAdmin && e.CreatedBy != userID {
			ok, err := store.HasModeratorAccess(c.Request.Context(), eventID, userID)
			if err != nil {
				response.Error(c, err, "failed to check event access")
				c.Abort()
				return
			}
			if !ok {
				response.Forbidden(c, "not authorized for this event")
				c.Abort()
				return
			}
		}
		c.Set(ContextEvent, e)
		c.Next()
	}
}

// EventFromContext returns the event resolved by RequireEventAccess.
func EventFromContext(c *gin.Context) *models.Event {
	return c.MustGet(ContextEvent).(*models.Event)
}

// CanModerate reports whether the caller may moderate the event: global
// admins, the owner, and users granted moderator access.
func CanModerate(ctx context.Context, store Store, eventID, userID uuid.UUID, role string) (bool, error) {
	if role == models.RoleAdmin {
		return true, nil
	}
	e, err := store.GetByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	if e.CreatedBy == userID {
		return true, nil
	}
	return store.HasModeratorAccess(ctx, eventID, userID)
}
