package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureEnabled(t *testing.T) {
	cases := []struct {
		name     string
		settings string
		key      string
		want     bool
	}{
		{"explicit true", `{"qa_enabled": true}`, "qa_enabled", true},
		{"explicit false", `{"qa_enabled": false}`, "qa_enabled", false},
		{"absent key defaults on", `{"polls_enabled": false}`, "qa_enabled", true},
		{"empty settings default on", ``, "qa_enabled", true},
		{"malformed settings default on", `{not json`, "qa_enabled", true},
		{"non-boolean value defaults on", `{"qa_enabled": "yes"}`, "qa_enabled", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FeatureEnabled(json.RawMessage(tc.settings), tc.key))
		})
	}
}

func TestEventPublic(t *testing.T) {
	e := &Event{
		ID:        uuid.New(),
		Name:      "Town Hall",
		EventCode: "TOWN42",
		CreatedBy: uuid.New(),
		Status:    EventStatusActive,
		Settings:  json.RawMessage(`{"qa_enabled": true}`),
	}

	raw, err := json.Marshal(e.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "created_by")
	assert.NotContains(t, string(raw), e.CreatedBy.String())
	assert.NotContains(t, string(raw), "event_code")
	assert.Contains(t, string(raw), "Town Hall")
}

func TestPollHasOption(t *testing.T) {
	p := &Poll{Options: []PollOption{{ID: "a", Text: "Yes"}, {ID: "b", Text: "No"}}}
	assert.True(t, p.HasOption("a"))
	assert.False(t, p.HasOption("c"))
}
