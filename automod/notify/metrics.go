package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsQueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_events_queued",
	Help: "Number of moderation events queued for delivery",
}, []string{"kind"})

var eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_events_dropped",
	Help: "Number of moderation events dropped because the queue was full",
}, []string{"kind"})

var notifyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_notify_errors",
	Help: "Number of failed moderation event deliveries",
}, []string{"notifier"})

var notifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "tipmod_notify_duration_sec",
	Help:    "Duration of moderation event deliveries",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
}, []string{"notifier"})
