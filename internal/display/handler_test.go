package display

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpulse/backend/internal/apperr"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/internal/polls"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEventStore struct {
	event *models.Event
}

func (s *fakeEventStore) Create(context.Context, *models.Event) error { return nil }
func (s *fakeEventStore) GetByCode(context.Context, string) (*models.Event, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if s.event == nil || s.event.ID != id {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	}
	return s.event, nil
}
func (s *fakeEventStore) ListOwnedBy(context.Context, uuid.UUID) ([]models.Event, error) {
	return nil, nil
}
func (s *fakeEventStore) UpdateStatus(context.Context, uuid.UUID, string, string) (*models.Event, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeEventStore) HasModeratorAccess(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}
func (s *fakeEventStore) GrantAccess(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}

type fakeQuestionStore struct {
	approved []models.Question
}

func (s *fakeQuestionStore) Create(context.Context, *models.Question) error { return nil }
func (s *fakeQuestionStore) GetByID(context.Context, uuid.UUID) (*models.Question, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeQuestionStore) Moderate(context.Context, uuid.UUID, string, uuid.UUID) (*models.Question, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeQuestionStore) ListPending(context.Context, uuid.UUID) ([]models.Question, error) {
	return nil, nil
}
func (s *fakeQuestionStore) ListApproved(_ context.Context, _ uuid.UUID, limit int) ([]models.Question, error) {
	if len(s.approved) > limit {
		return s.approved[:limit], nil
	}
	return s.approved, nil
}

type fakePollStore struct {
	active *models.Poll
	votes  []models.Vote
}

func (s *fakePollStore) Create(context.Context, *models.Poll) error { return nil }
func (s *fakePollStore) GetByID(context.Context, uuid.UUID) (*models.Poll, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakePollStore) ListByEvent(context.Context, uuid.UUID) ([]models.Poll, error) {
	return nil, nil
}
func (s *fakePollStore) SetActive(context.Context, uuid.UUID, uuid.UUID, bool) ([]models.Poll, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakePollStore) InsertVote(context.Context, *models.Vote) error { return nil }
func (s *fakePollStore) VotesByPoll(context.Context, uuid.UUID) ([]models.Vote, error) {
	return s.votes, nil
}
func (s *fakePollStore) ActiveByEvent(context.Context, uuid.UUID) (*models.Poll, error) {
	return s.active, nil
}

func TestDisplaySnapshot(t *testing.T) {
	event := &models.Event{
		ID:        uuid.New(),
		Name:      "Town Hall",
		EventCode: "TOWN42",
		CreatedBy: uuid.New(),
		Status:    models.EventStatusActive,
		Settings:  json.RawMessage(`{"qa_enabled": true}`),
	}
	now := time.Now()
	questions := []models.Question{
		{ID: uuid.New(), EventID: event.ID, Content: "What next?", Status: models.QuestionStatusApproved, ModeratedAt: &now},
		{ID: uuid.New(), EventID: event.ID, Content: "Why Go?", Status: models.QuestionStatusApproved, ModeratedAt: &now},
	}
	poll := &models.Poll{
		ID:       uuid.New(),
		EventID:  event.ID,
		Question: "Ship it?",
		PollType: models.PollTypeSingle,
		Active:   true,
		Options:  []models.PollOption{{ID: "a", Text: "Yes"}, {ID: "b", Text: "No"}},
	}
	votes := []models.Vote{
		{ID: uuid.New(), PollID: poll.ID, OptionIDs: []string{"a"}, SessionID: "s1"},
		{ID: uuid.New(), PollID: poll.ID, OptionIDs: []string{"a"}, SessionID: "s2"},
	}

	newRouter := func(ps polls.Store) *gin.Engine {
		h := NewHandler(&fakeEventStore{event: event}, &fakeQuestionStore{approved: questions}, ps, 50)
		r := gin.New()
		r.GET("/events/:id/display", h.Get)
		return r
	}

	t.Run("bundles questions, placements, and poll tally", func(t *testing.T) {
		r := newRouter(&fakePollStore{active: poll, votes: votes})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+event.ID.String()+"/display", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data Snapshot `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

		assert.Equal(t, event.ID, body.Data.Event.ID)
		assert.NotContains(t, w.Body.String(), "created_by")

		require.Len(t, body.Data.Questions, 2)
		assert.Equal(t, "What next?", body.Data.Questions[0].Question.Content)
		assert.Equal(t, PlaceQuestion(questions[0].ID), body.Data.Questions[0].Placement)

		require.NotNil(t, body.Data.ActivePoll)
		assert.Equal(t, poll.ID, body.Data.ActivePoll.ID)
		require.NotNil(t, body.Data.Tally)
		assert.Equal(t, 2, body.Data.Tally.TotalVotes)
		assert.Equal(t, "a", body.Data.Tally.Results[0].OptionID)
	})

	t.Run("omits poll when none is active", func(t *testing.T) {
		r := newRouter(&fakePollStore{})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+event.ID.String()+"/display", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data Snapshot `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Nil(t, body.Data.ActivePoll)
		assert.Nil(t, body.Data.Tally)
	})

	t.Run("unknown event is 404", func(t *testing.T) {
		r := newRouter(&fakePollStore{})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+uuid.New().String()+"/display", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
