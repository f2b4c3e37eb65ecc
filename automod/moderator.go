package automod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tiptune/tipmod/automod/artistdir"
	"github.com/tiptune/tipmod/automod/countstore"
	"github.com/tiptune/tipmod/automod/engine"
	"github.com/tiptune/tipmod/automod/helpers"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/automod/notify"
	"github.com/tiptune/tipmod/automod/rulestore"
	"github.com/tiptune/tipmod/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("automod")

// runtime for moderating tip messages, managing keyword rules, and reviewing flagged messages.
//
// Rules, Logs, Tips and Artists are required. Counters and Events are optional.
type Moderator struct {
	Logger   *slog.Logger
	Rules    rulestore.RuleStore
	Logs     logstore.LogStore
	Tips     logstore.TipStore
	Artists  artistdir.Directory
	Counters countstore.CountStore
	Events   notify.Sink
	// when set, an already-reviewed log may be reviewed again, overwriting the earlier decision and reviewer
	AllowReReview bool
}

// Moderates the message of a new tip, recording a moderation log and rewriting tip.Message in place.
//
// artistUserID is the user id of the receiving artist; it selects the artist-scoped rules (if that user has an artist profile). Tips without a message (nil, empty or whitespace-only) are left alone, and (nil, nil) is returned.
//
// The caller owns persistence of the tip itself. If the log can not be written, an error is returned and the tip is not modified.
func (m *Moderator) ModerateTipMessage(ctx context.Context, tip *models.Tip, artistUserID string) (*models.ModerationLog, error) {
	ctx, span := tracer.Start(ctx, "ModerateTipMessage")
	defer span.End()

	if tip == nil || tip.Message == nil || strings.TrimSpace(*tip.Message) == "" {
		return nil, nil
	}
	span.SetAttributes(attribute.String("tip", tip.ID))

	start := time.Now()
	defer func() {
		moderationDuration.Observe(time.Since(start).Seconds())
	}()

	log, err := m.moderateTip(ctx, tip, artistUserID)
	if err != nil {
		moderationErrorCount.Inc()
		span.RecordError(err)
		return nil, err
	}
	return log, nil
}

func (m *Moderator) moderateTip(ctx context.Context, tip *models.Tip, artistUserID string) (*models.ModerationLog, error) {
	message := *tip.Message
	logger := m.Logger.With("tip", tip.ID, "message_hash", helpers.HashOfString(message))

	artistID, err := m.resolveArtist(ctx, artistUserID)
	if err != nil {
		return nil, err
	}
	rules, err := rulestore.RulesForArtist(ctx, m.Rules, artistID)
	if err != nil {
		return nil, err
	}

	v := engine.ApplyFilters(message, rulestore.EngineRules(rules))
	result, err := moderationResultFor(v.Result)
	if err != nil {
		return nil, err
	}

	log := &models.ModerationLog{
		ID:               uuid.NewString(),
		TipID:            tip.ID,
		OriginalMessage:  message,
		ModerationResult: result,
		ConfidenceScore:  v.ConfidenceString(),
		CreatedAt:        time.Now().UTC(),
	}
	if v.Reason != "" {
		reason := v.Reason
		log.FilterReason = &reason
	}
	if err := m.Logs.CreateLog(ctx, log); err != nil {
		return nil, fmt.Errorf("persisting moderation log: %w", err)
	}

	switch v.Result {
	case engine.ResultApproved:
		// message stays as submitted
	case engine.ResultFiltered:
		tip.Message = v.SanitizedMessage
	case engine.ResultFlagged, engine.ResultBlocked:
		tip.Message = nil
	}
	log.Tip = tip

	moderationCount.WithLabelValues(string(result)).Inc()
	m.tally(ctx, result)
	switch result {
	case models.ResultFlagged:
		m.emit(notify.KindMessageFlagged, log, artistUserID, "")
	case models.ResultBlocked:
		m.emit(notify.KindMessageBlocked, log, artistUserID, "")
	}

	logger.Info("tip message moderated", "result", result, "confidence", log.ConfidenceScore, "matched", len(v.MatchedRules), "artist", artistID)
	return log, nil
}

// Dry run of the filter against global rules only. Writes nothing and emits nothing.
func (m *Moderator) PreviewMessage(ctx context.Context, message string) (engine.Verdict, error) {
	ctx, span := tracer.Start(ctx, "PreviewMessage")
	defer span.End()

	rules, err := m.Rules.GlobalRules(ctx)
	if err != nil {
		return engine.Verdict{}, err
	}
	return engine.ApplyFilters(message, rulestore.EngineRules(rules)), nil
}

// Validates a message before a tip is created, returning the text which should be stored on the tip.
//
// Blocked messages are rejected with ErrBlockedContent; filtered messages are replaced with their sanitized form. Approved and flagged messages are returned unchanged: flagged messages are hidden later, by ModerateTipMessage, so they still reach the review queue.
func (m *Moderator) ScreenMessage(ctx context.Context, message, artistUserID string) (string, error) {
	ctx, span := tracer.Start(ctx, "ScreenMessage")
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return message, nil
	}
	artistID, err := m.resolveArtist(ctx, artistUserID)
	if err != nil {
		return "", err
	}
	rules, err := rulestore.RulesForArtist(ctx, m.Rules, artistID)
	if err != nil {
		return "", err
	}

	v := engine.ApplyFilters(message, rulestore.EngineRules(rules))
	switch v.Result {
	case engine.ResultBlocked:
		return "", fmt.Errorf("%w: %s", ErrBlockedContent, v.Reason)
	case engine.ResultFiltered:
		return *v.SanitizedMessage, nil
	case engine.ResultApproved, engine.ResultFlagged:
		return message, nil
	default:
		return "", fmt.Errorf("unhandled filter result: %s", v.Result)
	}
}

// Returns the artist profile id for a user id, or an empty string if the user has no artist profile.
func (m *Moderator) resolveArtist(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	artist, err := m.Artists.LookupByUser(ctx, userID)
	if errors.Is(err, artistdir.ErrArtistNotFound) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("resolving artist profile: %w", err)
	}
	return artist.ID, nil
}

func moderationResultFor(r engine.Result) (models.ModerationResult, error) {
	switch r {
	case engine.ResultApproved:
		return models.ResultApproved, nil
	case engine.ResultFiltered:
		return models.ResultFiltered, nil
	case engine.ResultFlagged:
		return models.ResultFlagged, nil
	case engine.ResultBlocked:
		return models.ResultBlocked, nil
	default:
		return "", fmt.Errorf("unhandled filter result: %s", r)
	}
}

// tally failures only cost accuracy of the rolling stats, so they are logged and otherwise ignored
func (m *Moderator) tally(ctx context.Context, result models.ModerationResult) {
	if m.Counters == nil {
		return
	}
	if err := m.Counters.Increment(ctx, result); err != nil {
		m.Logger.Error("failed to increment moderation tally", "result", result, "err", err)
	}
}

func (m *Moderator) emit(kind notify.EventKind, log *models.ModerationLog, artistUserID, reviewer string) {
	if m.Events == nil {
		return
	}
	ev := notify.Event{
		Kind:        kind,
		LogID:       log.ID,
		TipID:       log.TipID,
		ArtistID:    artistUserID,
		Confidence:  log.ConfidenceScore,
		MessageHash: helpers.HashOfString(log.OriginalMessage),
		Reviewer:    reviewer,
		Time:        time.Now().UTC(),
	}
	if log.FilterReason != nil {
		ev.Reason = *log.FilterReason
	}
	m.Events.Emit(ev)
}
