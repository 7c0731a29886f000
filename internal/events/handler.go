package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdpulse/backend/internal/middleware"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/pkg/queue"
	"github.com/crowdpulse/backend/pkg/response"
)

// WrapupEnqueuer enqueues the wrap-up job fired when an event ends.
type WrapupEnqueuer interface {
	EnqueueEventWrapup(ctx context.Context, payload queue.EventWrapupPayload) error
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Name      string                 `json:"name" binding:"required"`
	EventCode string                 `json:"event_code" binding:"required"`
	Settings  map[string]interface{} `json:"settings"`
}

// StatusRequest is the body for PATCH /events/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft active ended"`
}

// GrantAccessRequest is the body for POST /events/:id/access.
type GrantAccessRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"omitempty,oneof=moderator viewer"`
}

// Handler handles event directory HTTP endpoints.
type Handler struct {
	store   Store
	wrapups WrapupEnqueuer
	logger  *zap.Logger
}

// NewHandler creates an events handler. wrapups may be nil when no worker
// is deployed.
func NewHandler(store Store, wrapups WrapupEnqueuer, logger *zap.Logger) *Handler {
	return &Handler{store: store, wrapups: wrapups, logger: logger}
}

// Create handles POST /events (authenticated host).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name and event_code are required")
		return
	}
	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.EventCode)
	if name == "" || code == "" {
		response.BadRequest(c, "name and event_code are required")
		return
	}

	settings := req.Settings
	if settings == nil {
		raw, _ := json.Marshal(models.DefaultEventSettings())
		_ = json.Unmarshal(raw, &settings)
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		response.BadRequest(c, "invalid settings")
		return
	}

	e := &models.Event{
		Name:      name,
		EventCode: code,
		CreatedBy: c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Settings:  settingsJSON,
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		response.Error(c, err, "")
		return
	}
	response.Created(c, e)
}

// Get handles GET /events. With ?code=X it is a public join-code lookup
// returning only display-safe fields; without it, an authenticated list of
// the caller's own events.
func (h *Handler) Get(c *gin.Context) {
	if code := strings.TrimSpace(c.Query("code")); code != "" {
		e, err := h.store.GetByCode(c.Request.Context(), code)
		if err != nil {
			response.Error(c, err, "event not found")
			return
		}
		response.OK(c, e.Public())
		return
	}

	userID, ok := c.Get(middleware.ContextUserID)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	list, err := h.store.ListOwnedBy(c.Request.Context(), userID.(uuid.UUID))
	if err != nil {
		response.Error(c, err, "failed to list events")
		return
	}
	response.OK(c, gin.H{"events": list})
}

// GetByID handles GET /events/:id (owner/moderator).
func (h *Handler) GetByID(c *gin.Context) {
	response.OK(c, EventFromContext(c))
}

// statusRank orders the monotonic lifecycle.
var statusRank = map[string]int{
	models.EventStatusDraft:  0,
	models.EventStatusActive: 1,
	models.EventStatusEnded:  2,
}

// UpdateStatus handles PATCH /events/:id/status (owner/moderator). Only
// forward transitions are allowed; ending an event enqueues a wrap-up job.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status must be draft, active, or ended")
		return
	}

	e := EventFromContext(c)
	if statusRank[req.Status] <= statusRank[e.Status] {
		response.InvalidState(c, "event status can only move forward")
		return
	}

	updated, err := h.store.UpdateStatus(c.Request.Context(), e.ID, e.Status, req.Status)
	if err != nil {
		response.Error(c, err, "")
		return
	}

	if req.Status == models.EventStatusEnded && h.wrapups != nil {
		if err := h.wrapups.EnqueueEventWrapup(c.Request.Context(), queue.EventWrapupPayload{EventID: e.ID}); err != nil {
			h.logger.Warn("enqueue wrap-up", zap.String("event_id", e.ID.String()), zap.Error(err))
		}
	}
	response.OK(c, updated)
}

// GrantAccess handles POST /events/:id/access (owner/moderator grants
// moderation rights to another account).
func (h *Handler) GrantAccess(c *gin.Context) {
	var req GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "user_id is required")
		return
	}
	role := req.Role
	if role == "" {
		role = "moderator"
	}
	e := EventFromContext(c)
	userID, _ := uuid.Parse(req.UserID)
	if err := h.store.GrantAccess(c.Request.Context(), e.ID, userID, role); err != nil {
		response.Error(c, err, "failed to grant access")
		return
	}
	response.OK(c, gin.H{"event_id": e.ID, "user_id": userID, "role": role})
}
