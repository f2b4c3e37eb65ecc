package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var moderationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_messages_moderated",
	Help: "Number of tip messages moderated, by result",
}, []string{"result"})

var moderationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "tipmod_moderation_duration_sec",
	Help:    "Duration of tip message moderation, including persistence",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
})

var moderationErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tipmod_moderation_errors",
	Help: "Number of tip messages which failed moderation",
})

var reviewCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_reviews",
	Help: "Number of moderation logs reviewed, by action",
}, []string{"action"})

var keywordChangeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_keyword_changes",
	Help: "Number of keyword rules added or deleted",
}, []string{"op", "scope"})
