package display

import (
	"encoding/binary"
	"math/rand"

	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/models"
)

const paletteSize = 6

// Placement positions one approved question on the display word cloud.
// X and Y are fractions of the canvas, Scale multiplies the base font size,
// Tilt is degrees. All values derive from the question id alone, so every
// display screen renders the identical layout without coordination.
type Placement struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Scale   float64 `json:"scale"`
	Tilt    float64 `json:"tilt"`
	Palette int     `json:"palette"`
}

// PlacedQuestion is an approved question with its cloud placement.
type PlacedQuestion struct {
	Question  models.Question `json:"question"`
	Placement Placement       `json:"placement"`
}

// PlaceQuestion computes the deterministic placement for a question id.
func PlaceQuestion(id uuid.UUID) Placement {
	seed := int64(binary.BigEndian.Uint64(id[:8]) ^ binary.BigEndian.Uint64(id[8:]))
	rng := rand.New(rand.NewSource(seed))

	// Keep a margin so text never clips the canvas edge.
	return Placement{
		X:       0.05 + rng.Float64()*0.80,
		Y:       0.05 + rng.Float64()*0.80,
		Scale:   0.8 + rng.Float64()*1.2,
		Tilt:    -15 + rng.Float64()*30,
		Palette: rng.Intn(paletteSize),
	}
}

// Layout places every question in the slice, preserving order.
func Layout(questions []models.Question) []PlacedQuestion {
	placed := make([]PlacedQuestion, 0, len(questions))
	for _, q := range questions {
		placed = append(placed, PlacedQuestion{Question: q, Placement: PlaceQuestion(q.ID)})
	}
	return placed
}
