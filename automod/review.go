package automod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/notify"
	"github.com/tiptune/tipmod/models"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultQueueLimit = 20
	MaxQueueLimit     = 100
)

// Applies a human review decision to a moderation log.
//
// APPROVE marks the log approved and restores the tip message to the original text; BLOCK marks it blocked and clears the tip message. The log and tip are written together, or not at all. A log whose tip no longer exists is still reviewed.
//
// Reviews are one-shot: reviewing a log which was already reviewed fails with ErrAlreadyReviewed, unless AllowReReview is set. Logs with any moderation result may be reviewed.
func (m *Moderator) ReviewModerationLog(ctx context.Context, logID string, action models.ReviewAction, reviewer string) (*models.ModerationLog, error) {
	ctx, span := tracer.Start(ctx, "ReviewModerationLog")
	defer span.End()
	span.SetAttributes(attribute.String("log", logID), attribute.String("action", string(action)))

	if _, err := models.ParseReviewAction(string(action)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if reviewer == "" {
		return nil, fmt.Errorf("%w: reviewer is required", ErrInvalidInput)
	}

	log, err := m.Logs.GetLog(ctx, logID)
	if errors.Is(err, logstore.ErrLogNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	} else if err != nil {
		return nil, err
	}
	if log.WasManuallyReviewed && !m.AllowReReview {
		return nil, fmt.Errorf("%w: log %s", ErrAlreadyReviewed, log.ID)
	}
	prevResult := log.ModerationResult

	applyReview(log, action, reviewer, time.Now().UTC())

	err = m.Logs.SaveReview(ctx, log, log.Tip, !m.AllowReReview)
	if errors.Is(err, logstore.ErrAlreadyReviewed) {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyReviewed, err)
	} else if errors.Is(err, logstore.ErrLogNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	} else if err != nil {
		return nil, fmt.Errorf("persisting review: %w", err)
	}

	reviewCount.WithLabelValues(string(action)).Inc()
	var artistUserID string
	if log.Tip != nil {
		artistUserID = log.Tip.ArtistID
	}
	switch action {
	case models.ReviewApprove:
		m.emit(notify.KindReviewApproved, log, artistUserID, reviewer)
	case models.ReviewBlock:
		m.emit(notify.KindReviewBlocked, log, artistUserID, reviewer)
	}
	m.Logger.Info("moderation log reviewed", "log", log.ID, "tip", log.TipID, "action", action, "reviewer", reviewer, "previous", prevResult)
	return log, nil
}

// State transition of a review, applied in memory. The action must already be validated.
func applyReview(log *models.ModerationLog, action models.ReviewAction, reviewer string, now time.Time) {
	switch action {
	case models.ReviewApprove:
		log.ModerationResult = models.ResultApproved
		if log.Tip != nil {
			msg := log.OriginalMessage
			log.Tip.Message = &msg
		}
	case models.ReviewBlock:
		log.ModerationResult = models.ResultBlocked
		if log.Tip != nil {
			log.Tip.Message = nil
		}
	}
	log.WasManuallyReviewed = true
	log.ReviewAction = &action
	log.ReviewedBy = &reviewer
	log.ReviewedAt = &now
}

type QueuePage struct {
	Data  []models.ModerationLog `json:"data"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

// Flagged logs awaiting review, newest first. Pages are numbered from 1; a zero limit means DefaultQueueLimit.
func (m *Moderator) ModerationQueue(ctx context.Context, page, limit int) (*QueuePage, error) {
	ctx, span := tracer.Start(ctx, "ModerationQueue")
	defer span.End()

	if limit == 0 {
		limit = DefaultQueueLimit
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrInvalidInput)
	}
	if limit < 1 || limit > MaxQueueLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxQueueLimit)
	}

	logs, total, err := m.Logs.ListPending(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &QueuePage{
		Data:  logs,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}
