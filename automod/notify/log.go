package notify

import (
	"context"
	"log/slog"
)

// Writes every event to the structured log. Useful when no other notifier is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Name() string {
	return "log"
}

func (n *LogNotifier) Notify(ctx context.Context, ev *Event) error {
	n.Logger.Info("moderation event",
		"kind", ev.Kind,
		"log_id", ev.LogID,
		"tip_id", ev.TipID,
		"artist_id", ev.ArtistID,
		"reason", ev.Reason,
		"confidence", ev.Confidence,
		"message_hash", ev.MessageHash,
		"reviewer", ev.Reviewer,
	)
	return nil
}
