// Persistence for moderation logs and the tips they refer to.
//
// Includes an interface and implementations using gorm (sqlite or postgres) and in-process memory.
package logstore

import (
	"context"
	"errors"

	"github.com/tiptune/tipmod/models"
)

var (
	ErrLogNotFound = errors.New("moderation log not found")
	ErrTipNotFound = errors.New("tip not found")
	ErrTipExists   = errors.New("tip already exists")
	// a review was requested on a log which some other review already resolved
	ErrAlreadyReviewed = errors.New("moderation log already reviewed")
)

type LogStore interface {
	CreateLog(ctx context.Context, log *models.ModerationLog) error
	// Fetches a log, with the associated tip attached when it exists.
	GetLog(ctx context.Context, id string) (*models.ModerationLog, error)
	// Writes the review fields (and moderation result) of the log, and the message of the tip if non-nil, atomically.
	//
	// When onlyPending is set, the write only applies if the stored log has not been reviewed yet; otherwise ErrAlreadyReviewed is returned and nothing is written.
	SaveReview(ctx context.Context, log *models.ModerationLog, tip *models.Tip, onlyPending bool) error
	// Flagged logs which have not been reviewed, newest first, with tips attached. Also returns the total number of such logs.
	ListPending(ctx context.Context, offset, limit int) ([]models.ModerationLog, int64, error)
	// Number of logs per current moderation result. Every result is present in the map.
	CountByResult(ctx context.Context) (map[models.ModerationResult]int64, error)
}

type TipStore interface {
	// Inserts a new tip. Returns ErrTipExists, and writes nothing, if a tip with the same id is already stored.
	CreateTip(ctx context.Context, tip *models.Tip) error
	// Inserts or overwrites a tip.
	SaveTip(ctx context.Context, tip *models.Tip) error
	GetTip(ctx context.Context, id string) (*models.Tip, error)
	DeleteTip(ctx context.Context, id string) error
}

func zeroCounts() map[models.ModerationResult]int64 {
	out := make(map[models.ModerationResult]int64, len(models.AllResults))
	for _, r := range models.AllResults {
		out[r] = 0
	}
	return out
}
