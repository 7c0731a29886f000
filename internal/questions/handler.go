package questions

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/events"
	"github.com/crowdpulse/backend/internal/middleware"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/internal/realtime"
	"github.com/crowdpulse/backend/pkg/response"
)

// Store is the question persistence contract consumed by the handler.
type Store interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	Moderate(ctx context.Context, id uuid.UUID, decision string, moderatorID uuid.UUID) (*models.Question, error)
	ListPending(ctx context.Context, eventID uuid.UUID) ([]models.Question, error)
	ListApproved(ctx context.Context, eventID uuid.UUID, limit int) ([]models.Question, error)
}

var _ Store = (*Repository)(nil)

// SubmitRequest is the body for POST /questions.
type SubmitRequest struct {
	EventID string `json:"event_id" binding:"required,uuid"`
	Content string `json:"content" binding:"required"`
}

// ModerateRequest is the body for PATCH /questions/:id/moderate.
type ModerateRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
}

// Handler handles question HTTP endpoints.
type Handler struct {
	store      Store
	eventStore events.Store
	hub        *realtime.Hub
	maxLen     int
	feedLimit  int
}

// NewHandler creates a questions handler. maxLen is the server-side content
// ceiling, feedLimit bounds the approved display feed.
func NewHandler(store Store, eventStore events.Store, hub *realtime.Hub, maxLen, feedLimit int) *Handler {
	if maxLen <= 0 {
		maxLen = 500
	}
	if feedLimit <= 0 {
		feedLimit = 50
	}
	return &Handler{store: store, eventStore: eventStore, hub: hub, maxLen: maxLen, feedLimit: feedLimit}
}

// Submit handles POST /questions (public, anonymous). Questions are always
// created pending.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "event_id and content are required")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		response.BadRequest(c, "content must not be empty")
		return
	}
	if utf8.RuneCountInString(content) > h.maxLen {
		response.BadRequest(c, "question too long")
		return
	}

	eventID, _ := uuid.Parse(req.EventID)
	e, err := h.eventStore.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err, "event not found")
		return
	}
	if !qaEnabled(e) {
		response.InvalidState(c, "question submission is disabled for this event")
		return
	}

	q := &models.Question{EventID: eventID, Content: content}
	if err := h.store.Create(c.Request.Context(), q); err != nil {
		response.Error(c, err, "failed to submit question")
		return
	}

	if ev, ok := realtime.NewChangeEvent(realtime.KindQuestion, realtime.OpInsert, q); ok {
		h.hub.Publish(eventID, ev)
	}
	response.Created(c, q)
}

// Moderate handles PATCH /questions/:id/moderate (moderator). The decision
// is terminal; a non-pending question fails with invalid_state.
func (h *Handler) Moderate(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "decision must be approved or rejected")
		return
	}

	q, err := h.store.GetByID(c.Request.Context(), questionID)
	if err != nil {
		response.Error(c, err, "question not found")
		return
	}
	if !h.requireModerator(c, q.EventID) {
		return
	}

	moderatorID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	updated, err := h.store.Moderate(c.Request.Context(), questionID, req.Decision, moderatorID)
	if err != nil {
		response.Error(c, err, "")
		return
	}

	if ev, ok := realtime.NewChangeEvent(realtime.KindQuestion, realtime.OpUpdate, updated); ok {
		h.hub.Publish(updated.EventID, ev)
	}
	response.OK(c, updated)
}

// ListByEvent handles GET /events/:id/questions. status=approved is the
// public display feed; status=pending is the moderation queue and requires
// a moderator of the event.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var list []models.Question
	switch c.DefaultQuery("status", models.QuestionStatusApproved) {
	case models.QuestionStatusPending:
		if !h.requireModerator(c, eventID) {
			return
		}
		list, err = h.store.ListPending(c.Request.Context(), eventID)
	case models.QuestionStatusApproved:
		list, err = h.store.ListApproved(c.Request.Context(), eventID, h.feedLimit)
	default:
		response.BadRequest(c, "status must be pending or approved")
		return
	}
	if err != nil {
		response.Error(c, err, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// requireModerator writes the error response and returns false when the
// caller may not moderate the event.
func (h *Handler) requireModerator(c *gin.Context, eventID uuid.UUID) bool {
	userIDVal, ok := c.Get(middleware.ContextUserID)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return false
	}
	userID := userIDVal.(uuid.UUID)
	ok, err := events.CanModerate(c.Request.Context(), h.eventStore, eventID, userID, c.GetString(middleware.ContextUserRole))
	if err != nil {
		response.Error(c, err, "failed to check event access")
		return false
	}
	if !ok {
		response.Forbidden(c, "not authorized for this event")
		return false
	}
	return true
}

func qaEnabled(e *models.Event) bool {
	return models.FeatureEnabled(e.Settings, "qa_enabled")
}
