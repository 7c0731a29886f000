package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crowdpulse/backend/internal/apperr"
	"github.com/crowdpulse/backend/internal/middleware"
	"github.com/crowdpulse/backend/internal/models"
	"github.com/crowdpulse/backend/internal/realtime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeEventStore serves a fixed set of events.
type fakeEventStore struct {
	events map[uuid.UUID]*models.Event
}

func (s *fakeEventStore) Create(context.Context, *models.Event) error { return nil }
func (s *fakeEventStore) GetByCode(context.Context, string) (*models.Event, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
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

// memQuestionStore is an in-memory Store honoring the pending-only
// moderation guard.
type memQuestionStore struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*models.Question
	seq       int
}

func newMemQuestionStore() *memQuestionStore {
	return &memQuestionStore{questions: make(map[uuid.UUID]*models.Question)}
}

func (s *memQuestionStore) Create(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	q.ID = uuid.New()
	q.Status = models.QuestionStatusPending
	q.SubmittedAt = time.Now().Add(time.Duration(s.seq) * time.Millisecond)
	s.questions[q.ID] = q
	return nil
}

func (s *memQuestionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
	}
	copied := *q
	return &copied, nil
}

func (s *memQuestionStore) Moderate(_ context.Context, id uuid.UUID, decision string, moderatorID uuid.UUID) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
	}
	if q.Status != models.QuestionStatusPending {
		return nil, fmt.Errorf("question already moderated: %w", apperr.ErrInvalidState)
	}
	s.seq++
	now := time.Now().Add(time.Duration(s.seq) * time.Millisecond)
	q.Status = decision
	q.ModeratedBy = &moderatorID
	q.ModeratedAt = &now
	copied := *q
	return &copied, nil
}

func (s *memQuestionStore) ListPending(_ context.Context, eventID uuid.UUID) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Question
	for _, q := range s.questions {
		if q.EventID == eventID && q.Status == models.QuestionStatusPending {
			list = append(list, *q)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SubmittedAt.Before(list[j].SubmittedAt) })
	return list, nil
}

func (s *memQuestionStore) ListApproved(_ context.Context, eventID uuid.UUID, limit int) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Question
	for _, q := range s.questions {
		if q.EventID == eventID && q.Status == models.QuestionStatusApproved {
			list = append(list, *q)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ModeratedAt.After(*list[j].ModeratedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

var _ Store = (*memQuestionStore)(nil)

type questionFixture struct {
	router  *gin.Engine
	store   *memQuestionStore
	hub     *realtime.Hub
	event   *models.Event
	ownerID uuid.UUID
}

func newQuestionFixture(t *testing.T, settings string) *questionFixture {
	t.Helper()
	ownerID := uuid.New()
	event := &models.Event{
		ID:        uuid.New(),
		Name:      "Town Hall",
		EventCode: "TOWN42",
		CreatedBy: ownerID,
		Status:    models.EventStatusActive,
		Settings:  json.RawMessage(settings),
	}
	eventStore := &fakeEventStore{events: map[uuid.UUID]*models.Event{event.ID: event}}
	store := newMemQuestionStore()
	hub := realtime.NewHub(zap.NewNop(), nil, 16)
	h := NewHandler(store, eventStore, hub, 500, 50)

	asOwner := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, ownerID)
		c.Set(middleware.ContextUserRole, models.RoleModerator)
	}

	r := gin.New()
	r.POST("/questions", h.Submit)
	r.GET("/events/:id/questions", asOwner, h.ListByEvent)
	r.GET("/public/events/:id/questions", h.ListByEvent)
	r.PATCH("/questions/:id/moderate", asOwner, h.Moderate)

	return &questionFixture{router: r, store: store, hub: hub, event: event, ownerID: ownerID}
}

func (f *questionFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *questionFixture) submit(t *testing.T, content string) models.Question {
	t.Helper()
	w := f.do(t, http.MethodPost, "/questions", gin.H{"event_id": f.event.ID.String(), "content": content})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Data models.Question `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestQuestionSubmit(t *testing.T) {
	t.Run("created pending and fanned out", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		sub := f.hub.Subscribe(f.event.ID, realtime.KindQuestion)
		defer sub.Cancel()

		q := f.submit(t, "  What is the roadmap?  ")
		assert.Equal(t, models.QuestionStatusPending, q.Status)
		assert.Equal(t, "What is the roadmap?", q.Content)

		ev := <-sub.C
		assert.Equal(t, realtime.KindQuestion, ev.Kind)
		assert.Equal(t, realtime.OpInsert, ev.Op)
		var record models.Question
		require.NoError(t, json.Unmarshal(ev.Record, &record))
		assert.Equal(t, q.ID, record.ID)
	})

	t.Run("empty after trimming rejected", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		w := f.do(t, http.MethodPost, "/questions", gin.H{"event_id": f.event.ID.String(), "content": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("over-length content rejected", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		long := strings.Repeat("q", 501)
		w := f.do(t, http.MethodPost, "/questions", gin.H{"event_id": f.event.ID.String(), "content": long})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		// exactly at the ceiling is fine
		f.submit(t, strings.Repeat("q", 500))
	})

	t.Run("unknown event is 404", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		w := f.do(t, http.MethodPost, "/questions", gin.H{"event_id": uuid.New().String(), "content": "hi"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("disabled qa is 422", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": false}`)
		w := f.do(t, http.MethodPost, "/questions", gin.H{"event_id": f.event.ID.String(), "content": "hi"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestQuestionModerate(t *testing.T) {
	t.Run("approve emits update and leaves pending queue", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		q := f.submit(t, "What is the roadmap?")

		sub := f.hub.Subscribe(f.event.ID, realtime.KindQuestion)
		defer sub.Cancel()

		w := f.do(t, http.MethodPatch, "/questions/"+q.ID.String()+"/moderate", gin.H{"decision": "approved"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		ev := <-sub.C
		assert.Equal(t, realtime.OpUpdate, ev.Op)
		var record models.Question
		require.NoError(t, json.Unmarshal(ev.Record, &record))
		assert.Equal(t, models.QuestionStatusApproved, record.Status)
		require.NotNil(t, record.ModeratedBy)
		assert.Equal(t, f.ownerID, *record.ModeratedBy)

		pending, err := f.store.ListPending(context.Background(), f.event.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("decision is terminal", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		q := f.submit(t, "What is the roadmap?")

		w := f.do(t, http.MethodPatch, "/questions/"+q.ID.String()+"/moderate", gin.H{"decision": "rejected"})
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodPatch, "/questions/"+q.ID.String()+"/moderate", gin.H{"decision": "approved"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("bad decision rejected", func(t *testing.T) {
		f := newQuestionFixture(t, `{"qa_enabled": true}`)
		q := f.submit(t, "What is the roadmap?")
		w := f.do(t, http.MethodPatch, "/questions/"+q.ID.String()+"/moderate", gin.H{"decision": "maybe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQuestionListByEvent(t *testing.T) {
	f := newQuestionFixture(t, `{"qa_enabled": true}`)
	first := f.submit(t, "first")
	second := f.submit(t, "second")
	third := f.submit(t, "third")

	t.Run("pending queue is FIFO", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/events/"+f.event.ID.String()+"/questions?status=pending", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Questions []models.Question `json:"questions"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data.Questions, 3)
		assert.Equal(t, first.ID, body.Data.Questions[0].ID)
		assert.Equal(t, second.ID, body.Data.Questions[1].ID)
		assert.Equal(t, third.ID, body.Data.Questions[2].ID)
	})

	t.Run("approved feed is most recent first", func(t *testing.T) {
		for _, q := range []models.Question{first, third} {
			w := f.do(t, http.MethodPatch, "/questions/"+q.ID.String()+"/moderate", gin.H{"decision": "approved"})
			require.Equal(t, http.StatusOK, w.Code)
		}

		w := f.do(t, http.MethodGet, "/events/"+f.event.ID.String()+"/questions?status=approved", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Questions []models.Question `json:"questions"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data.Questions, 2)
		assert.Equal(t, third.ID, body.Data.Questions[0].ID)
		assert.Equal(t, first.ID, body.Data.Questions[1].ID)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/events/"+f.event.ID.String()+"/questions?status=rejected", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approved feed is public, pending queue is not", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/public/events/"+f.event.ID.String()+"/questions?status=approved", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodGet, "/public/events/"+f.event.ID.String()+"/questions?status=pending", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
