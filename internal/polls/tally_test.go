package polls

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpulse/backend/internal/models"
)

func newTestPoll(pollType string) *models.Poll {
	return &models.Poll{
		ID:       uuid.New(),
		EventID:  uuid.New(),
		Question: "Which topic next?",
		PollType: pollType,
		Options: []models.PollOption{
			{ID: "a", Text: "Concurrency"},
			{ID: "b", Text: "Generics"},
			{ID: "c", Text: "Tooling"},
		},
	}
}

func vote(pollID uuid.UUID, optionIDs ...string) models.Vote {
	return models.Vote{
		ID:        uuid.New(),
		PollID:    pollID,
		OptionIDs: optionIDs,
		SessionID: uuid.New().String(),
	}
}

func TestTally(t *testing.T) {
	t.Run("zero votes yields zero counts and percentages", func(t *testing.T) {
		p := newTestPoll(models.PollTypeSingle)
		res := Tally(p, nil)

		assert.Equal(t, p.ID, res.PollID)
		assert.Equal(t, 0, res.TotalVotes)
		require.Len(t, res.Results, 3)
		for _, r := range res.Results {
			assert.Equal(t, 0, r.Count)
			assert.Equal(t, 0, r.Percentage)
		}
	})

	t.Run("counts and rounds percentages", func(t *testing.T) {
		p := newTestPoll(models.PollTypeSingle)
		votes := []models.Vote{
			vote(p.ID, "a"),
			vote(p.ID, "a"),
			vote(p.ID, "b"),
		}
		res := Tally(p, votes)

		assert.Equal(t, 3, res.TotalVotes)
		require.Len(t, res.Results, 3)
		assert.Equal(t, "a", res.Results[0].OptionID)
		assert.Equal(t, 2, res.Results[0].Count)
		assert.Equal(t, 67, res.Results[0].Percentage)
		assert.Equal(t, "b", res.Results[1].OptionID)
		assert.Equal(t, 1, res.Results[1].Count)
		assert.Equal(t, 33, res.Results[1].Percentage)
		assert.Equal(t, "c", res.Results[2].OptionID)
		assert.Equal(t, 0, res.Results[2].Count)
	})

	t.Run("sorted by count descending, ties keep definition order", func(t *testing.T) {
		p := newTestPoll(models.PollTypeSingle)
		votes := []models.Vote{
			vote(p.ID, "b"),
			vote(p.ID, "c"),
			vote(p.ID, "c"),
			vote(p.ID, "a"),
		}
		res := Tally(p, votes)

		require.Len(t, res.Results, 3)
		assert.Equal(t, "c", res.Results[0].OptionID)
		// a and b tie at 1; a is defined first
		assert.Equal(t, "a", res.Results[1].OptionID)
		assert.Equal(t, "b", res.Results[2].OptionID)
	})

	t.Run("multiple choice counts ballots, not selections", func(t *testing.T) {
		p := newTestPoll(models.PollTypeMultiple)
		votes := []models.Vote{
			vote(p.ID, "a", "b"),
			vote(p.ID, "a"),
		}
		res := Tally(p, votes)

		assert.Equal(t, 2, res.TotalVotes)
		assert.Equal(t, "a", res.Results[0].OptionID)
		assert.Equal(t, 2, res.Results[0].Count)
		assert.Equal(t, 100, res.Results[0].Percentage)
		assert.Equal(t, "b", res.Results[1].OptionID)
		assert.Equal(t, 1, res.Results[1].Count)
		assert.Equal(t, 50, res.Results[1].Percentage)
	})

	t.Run("unknown option ids in stored votes are ignored", func(t *testing.T) {
		p := newTestPoll(models.PollTypeSingle)
		votes := []models.Vote{vote(p.ID, "zzz"), vote(p.ID, "a")}
		res := Tally(p, votes)

		assert.Equal(t, 2, res.TotalVotes)
		assert.Equal(t, "a", res.Results[0].OptionID)
		assert.Equal(t, 1, res.Results[0].Count)
	})
}
