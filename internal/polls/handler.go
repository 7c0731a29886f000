package polls

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/events"
	"github.com/crowdpulse/backend/internal/middleware"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/internal/realtime"
	"github.com/crowdpulse/backend/pkg/response"
)

// Store is the poll persistence contract consumed by the handler.
type Store interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Poll, error)
	SetActive(ctx context.Context, pollID, eventID uuid.UUID, active bool) ([]models.Poll, error)
	InsertVote(ctx context.Context, v *models.Vote) error
	VotesByPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
	ActiveByEvent(ctx context.Context, eventID uuid.UUID) (*models.Poll, error)
}

var _ Store = (*Repository)(nil)

// CreateRequest is the body for POST /polls.
type CreateRequest struct {
	EventID  string              `json:"event_id" binding:"required,uuid"`
	Question string              `json:"question" binding:"required"`
	Options  []models.PollOption `json:"options" binding:"required"`
	PollType string              `json:"poll_type" binding:"omitempty,oneof=single multiple"`
}

// ActivateRequest is the body for POST /polls/:id/activate.
type ActivateRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// VoteRequest is the body for POST /votes.
type VoteRequest struct {
	PollID    string   `json:"poll_id" binding:"required,uuid"`
	OptionIDs []string `json:"option_ids" binding:"required,min=1"`
	SessionID string   `json:"session_id" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	store      Store
	eventStore events.Store
	hub        *realtime.Hub
}

// NewHandler creates a polls handler.
func NewHandler(store Store, eventStore events.Store, hub *realtime.Hub) *Handler {
	return &Handler{store: store, eventStore: eventStore, hub: hub}
}

// Create handles POST /polls (moderator). Polls start inactive with an
// immutable option set.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "event_id, question, and options are required")
		return
	}
	if len(req.Options) < 2 {
		response.BadRequest(c, "polls need at least 2 options")
		return
	}
	seen := make(map[string]bool, len(req.Options))
	for _, opt := range req.Options {
		if strings.TrimSpace(opt.ID) == "" || strings.TrimSpace(opt.Text) == "" {
			response.BadRequest(c, "option id and text must not be empty")
			return
		}
		if seen[opt.ID] {
			response.BadRequest(c, "duplicate option id: "+opt.ID)
			return
		}
		seen[opt.ID] = true
	}
	pollType := req.PollType
	if pollType == "" {
		pollType = models.PollTypeSingle
	}

	eventID, _ := uuid.Parse(req.EventID)
	if !h.requireModerator(c, eventID) {
		return
	}
	e, err := h.eventStore.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err, "event not found")
		return
	}
	if !models.FeatureEnabled(e.Settings, "polls_enabled") {
		response.InvalidState(c, "polls are disabled for this event")
		return
	}

	p := &models.Poll{
		EventID:  eventID,
		Question: strings.TrimSpace(req.Question),
		Options:  req.Options,
		PollType: pollType,
	}
	if err := h.store.Create(c.Request.Context(), p); err != nil {
		response.Error(c, err, "failed to create poll")
		return
	}

	if ev, ok := realtime.NewChangeEvent(realtime.KindPoll, realtime.OpInsert, p); ok {
		h.hub.Publish(eventID, ev)
	}
	response.Created(c, p)
}

// SetActive handles POST /polls/:id/activate (moderator). Activating
// atomically deactivates every other poll of the event; each changed poll
// is pushed to subscribers.
func (h *Handler) SetActive(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "active is required")
		return
	}

	p, err := h.store.GetByID(c.Request.Context(), pollID)
	if err != nil {
		response.Error(c, err, "poll not found")
		return
	}
	if !h.requireModerator(c, p.EventID) {
		return
	}

	changed, err := h.store.SetActive(c.Request.Context(), pollID, p.EventID, *req.Active)
	if err != nil {
		response.Error(c, err, "")
		return
	}

	var result *models.Poll
	for i := range changed {
		if ev, ok := realtime.NewChangeEvent(realtime.KindPoll, realtime.OpUpdate, &changed[i]); ok {
			h.hub.Publish(changed[i].EventID, ev)
		}
		if changed[i].ID == pollID {
			result = &changed[i]
		}
	}
	response.OK(c, result)
}

// CastVote handles POST /votes (public, anonymous). The session identifier
// is an opaque client token used only to deduplicate votes.
func (h *Handler) CastVote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "poll_id, option_ids, and session_id are required")
		return
	}

	pollID, _ := uuid.Parse(req.PollID)
	p, err := h.store.GetByID(c.Request.Context(), pollID)
	if err != nil {
		response.Error(c, err, "poll not found")
		return
	}
	if !p.Active {
		response.InvalidState(c, "poll is not accepting votes")
		return
	}
	if p.PollType == models.PollTypeSingle && len(req.OptionIDs) != 1 {
		response.BadRequest(c, "single-choice polls take exactly one option")
		return
	}
	seen := make(map[string]bool, len(req.OptionIDs))
	for _, id := range req.OptionIDs {
		if !p.HasOption(id) {
			response.BadRequest(c, "unknown option: "+id)
			return
		}
		if seen[id] {
			response.BadRequest(c, "duplicate option: "+id)
			return
		}
		seen[id] = true
	}

	v := &models.Vote{PollID: pollID, OptionIDs: req.OptionIDs, SessionID: req.SessionID}
	if err := h.store.InsertVote(c.Request.Context(), v); err != nil {
		response.Error(c, err, "")
		return
	}

	if ev, ok := realtime.NewChangeEvent(realtime.KindVote, realtime.OpInsert, v); ok {
		h.hub.Publish(p.EventID, ev)
	}
	response.Created(c, v)
}

// Results handles GET /polls/:id/results (public). The tally is recomputed
// from the vote rows on every call.
func (h *Handler) Results(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	p, err := h.store.GetByID(c.Request.Context(), pollID)
	if err != nil {
		response.Error(c, err, "poll not found")
		return
	}
	votes, err := h.store.VotesByPoll(c.Request.Context(), pollID)
	if err != nil {
		response.Error(c, err, "failed to tally votes")
		return
	}
	response.OK(c, Tally(p, votes))
}

// ListByEvent handles GET /events/:id/polls (moderator).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err, "failed to list polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

func (h *Handler) requireModerator(c *gin.Context, eventID uuid.UUID) bool {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
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
