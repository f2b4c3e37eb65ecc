// Outbound stream of moderation events.
//
// Moderation emits events into a Sink without blocking; a Dispatcher delivers them to any number of Notifiers (slack, logs) from its own goroutine. Events never carry raw message text, only a hash of it.
package notify

import (
	"context"
	"time"
)

type EventKind string

const (
	KindMessageFlagged EventKind = "message-flagged"
	KindMessageBlocked EventKind = "message-blocked"
	KindReviewApproved EventKind = "review-approved"
	KindReviewBlocked  EventKind = "review-blocked"
)

type Event struct {
	Kind  EventKind `json:"kind"`
	LogID string    `json:"log_id"`
	TipID string    `json:"tip_id"`
	// user id of the receiving artist, if known
	ArtistID    string    `json:"artist_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Confidence  string    `json:"confidence,omitempty"`
	MessageHash string    `json:"message_hash,omitempty"`
	Reviewer    string    `json:"reviewer,omitempty"`
	Time        time.Time `json:"time"`
}

// Accepts events for asynchronous delivery. Emit must never block on delivery.
type Sink interface {
	Emit(ev Event)
}

// Interface for a type that can handle sending notifications
type Notifier interface {
	Notify(ctx context.Context, ev *Event) error
	Name() string
}
