package display

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpulse/backend/internal/models"
)

func TestPlaceQuestion(t *testing.T) {
	t.Run("deterministic for the same id", func(t *testing.T) {
		id := uuid.New()
		first := PlaceQuestion(id)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, PlaceQuestion(id))
		}
	})

	t.Run("values stay in bounds", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			p := PlaceQuestion(uuid.New())
			assert.GreaterOrEqual(t, p.X, 0.05)
			assert.Less(t, p.X, 0.85)
			assert.GreaterOrEqual(t, p.Y, 0.05)
			assert.Less(t, p.Y, 0.85)
			assert.GreaterOrEqual(t, p.Scale, 0.8)
			assert.Less(t, p.Scale, 2.0)
			assert.GreaterOrEqual(t, p.Tilt, -15.0)
			assert.Less(t, p.Tilt, 15.0)
			assert.GreaterOrEqual(t, p.Palette, 0)
			assert.Less(t, p.Palette, paletteSize)
		}
	})

	t.Run("different ids spread out", func(t *testing.T) {
		seen := make(map[Placement]bool)
		for i := 0; i < 50; i++ {
			seen[PlaceQuestion(uuid.New())] = true
		}
		assert.Greater(t, len(seen), 45)
	})
}

func TestLayout(t *testing.T) {
	questions := []models.Question{
		{ID: uuid.New(), Content: "first"},
		{ID: uuid.New(), Content: "second"},
	}
	placed := Layout(questions)

	require.Len(t, placed, 2)
	assert.Equal(t, "first", placed[0].Question.Content)
	assert.Equal(t, "second", placed[1].Question.Content)
	assert.Equal(t, PlaceQuestion(questions[0].ID), placed[0].Placement)
	assert.Equal(t, PlaceQuestion(questions[1].ID), placed[1].Placement)
}
