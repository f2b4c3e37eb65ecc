// Rolling tallies of moderation verdicts, bucketed by hour, day, and all-time.
//
// Includes an interface and implementations using redis and in-process memory. Tallies back the "today" and "last hour" columns of moderation stats; all-time totals are also kept, but the moderation log table remains the source of truth.
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tiptune/tipmod/models"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

var AllPeriods = []string{PeriodTotal, PeriodDay, PeriodHour}

type CountStore interface {
	// Records one verdict, in the current bucket of every period.
	Increment(ctx context.Context, result models.ModerationResult) error
	// Tallies in the current bucket of the period. Every result is present in the map.
	GetCounts(ctx context.Context, period string) (map[models.ModerationResult]int, error)
}

func ValidPeriod(period string) bool {
	switch period {
	case PeriodTotal, PeriodDay, PeriodHour:
		return true
	default:
		return false
	}
}

func periodBucket(period string) string {
	switch period {
	case PeriodTotal:
		return PeriodTotal
	case PeriodDay:
		t := time.Now().UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s", PeriodDay, t)
	case PeriodHour:
		t := time.Now().UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s", PeriodHour, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return PeriodTotal
	}
}

func zeroCounts() map[models.ModerationResult]int {
	out := make(map[models.ModerationResult]int, len(models.AllResults))
	for _, r := range models.AllResults {
		out[r] = 0
	}
	return out
}
