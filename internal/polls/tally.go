package polls

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/crowdpulse/backend/internal/models"
)

// OptionResult is one option's share of a tally.
type OptionResult struct {
	OptionID   string `json:"option_id"`
	Text       string `json:"text"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TallyResult is the computed standing of a poll, sorted for display
// ranking: count descending, ties broken by option definition order.
type TallyResult struct {
	PollID     uuid.UUID      `json:"poll_id"`
	TotalVotes int            `json:"total_votes"`
	Results    []OptionResult `json:"results"`
}

// Tally recomputes poll standings from the full vote set. Votes are the
// source of truth; no incremental counter is trusted. total_votes counts
// ballots (sessions), so multiple-choice percentages are per-voter shares.
func Tally(poll *models.Poll, votes []models.Vote) TallyResult {
	counts := make(map[string]int, len(poll.Options))
	for _, v := range votes {
		for _, id := range v.OptionIDs {
			if poll.HasOption(id) {
				counts[id]++
			}
		}
	}

	total := len(votes)
	results := make([]OptionResult, 0, len(poll.Options))
	for _, opt := range poll.Options {
		count := counts[opt.ID]
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(count) / float64(total) * 100))
		}
		results = append(results, OptionResult{
			OptionID:   opt.ID,
			Text:       opt.Text,
			Count:      count,
			Percentage: pct,
		})
	}

	// Stable sort keeps definition order for equal counts.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})

	return TallyResult{PollID: poll.ID, TotalVotes: total, Results: results}
}
