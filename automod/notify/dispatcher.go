package notify

import (
	"context"
	"log/slog"
	"time"
)

// How long Run keeps delivering already-queued events after its context is cancelled.
var DrainTimeout = 5 * time.Second

type Dispatcher struct {
	Notifiers []Notifier
	Logger    *slog.Logger

	queue chan Event
}

var _ Sink = (*Dispatcher)(nil)

func NewDispatcher(logger *slog.Logger, queueSize int, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		Notifiers: notifiers,
		Logger:    logger.With("component", "notify"),
		queue:     make(chan Event, queueSize),
	}
}

// Queues the event. If the queue is full the event is dropped.
func (d *Dispatcher) Emit(ev Event) {
	select {
	case d.queue <- ev:
		eventsQueued.WithLabelValues(string(ev.Kind)).Inc()
	default:
		eventsDropped.WithLabelValues(string(ev.Kind)).Inc()
		d.Logger.Warn("notification queue full, dropping event", "kind", ev.Kind, "log_id", ev.LogID)
	}
}

// Delivers queued events until the context is cancelled, then drains whatever is still queued (bounded by DrainTimeout).
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, &ev)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, &ev)
		default:
			return
		}
		if ctx.Err() != nil {
			d.Logger.Warn("gave up draining notification queue", "remaining", len(d.queue))
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev *Event) {
	for _, n := range d.Notifiers {
		start := time.Now()
		err := n.Notify(ctx, ev)
		notifyDuration.WithLabelValues(n.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			notifyErrors.WithLabelValues(n.Name()).Inc()
			d.Logger.Error("failed to deliver moderation event", "notifier", n.Name(), "kind", ev.Kind, "log_id", ev.LogID, "err", err)
		}
	}
}
