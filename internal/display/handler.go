package display

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/events"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/internal/polls"
	"github.com/crowdpulse/backend/internal/questions"
	"github.com/crowdpulse/backend/pkg/response"
)

// Snapshot is the one-shot state a display screen needs before it starts
// following the change stream.
type Snapshot struct {
	Event      models.PublicEvent `json:"event"`
	Questions  []PlacedQuestion   `json:"questions"`
	ActivePoll *models.Poll       `json:"active_poll,omitempty"`
	Tally      *polls.TallyResult `json:"tally,omitempty"`
}

// Handler serves the display snapshot endpoint.
type Handler struct {
	eventStore    events.Store
	questionStore questions.Store
	pollStore     polls.Store
	feedLimit     int
}

// NewHandler creates a display handler.
func NewHandler(eventStore events.Store, questionStore questions.Store, pollStore polls.Store, feedLimit int) *Handler {
	if feedLimit <= 0 {
		feedLimit = 50
	}
	return &Handler{
		eventStore:    eventStore,
		questionStore: questionStore,
		pollStore:     pollStore,
		feedLimit:     feedLimit,
	}
}

// Get handles GET /events/:id/display (public). It bundles the approved
// question feed with word-cloud placements and the active poll with its
// current tally.
func (h *Handler) Get(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()

	e, err := h.eventStore.GetByID(ctx, eventID)
	if err != nil {
		response.Error(c, err, "event not found")
		return
	}

	approved, err := h.questionStore.ListApproved(ctx, eventID, h.feedLimit)
	if err != nil {
		response.Error(c, err, "failed to load questions")
		return
	}

	snap := Snapshot{Event: e.Public(), Questions: Layout(approved)}

	active, err := h.pollStore.ActiveByEvent(ctx, eventID)
	if err != nil {
		response.Error(c, err, "failed to load active poll")
		return
	}
	if active != nil {
		votes, err := h.pollStore.VotesByPoll(ctx, active.ID)
		if err != nil {
			response.Error(c, err, "failed to tally votes")
			return
		}
		tally := polls.Tally(active, votes)
		snap.ActivePoll = active
		snap.Tally = &tally
	}

	response.OK(c, snap)
}
