package automod

import (
	"context"

	"github.com/tiptune/tipmod/automod/countstore"
	"github.com/tiptune/tipmod/models"
)

type Stats struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Filtered int64 `json:"filtered"`
	Flagged  int64 `json:"flagged"`
	Blocked  int64 `json:"blocked"`

	// rolling tallies, only present when a count store is configured
	Today    map[models.ModerationResult]int `json:"today,omitempty"`
	LastHour map[models.ModerationResult]int `json:"last_hour,omitempty"`
}

// Totals of current moderation results across all logs. Reviewed logs count under their reviewed result.
func (m *Moderator) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	counts, err := m.Logs.CountByResult(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		Approved: counts[models.ResultApproved],
		Filtered: counts[models.ResultFiltered],
		Flagged:  counts[models.ResultFlagged],
		Blocked:  counts[models.ResultBlocked],
	}
	for _, c := range counts {
		s.Total += c
	}

	if m.Counters != nil {
		s.Today, err = m.Counters.GetCounts(ctx, countstore.PeriodDay)
		if err != nil {
			return nil, err
		}
		s.LastHour, err = m.Counters.GetCounts(ctx, countstore.PeriodHour)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
