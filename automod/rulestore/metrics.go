package rulestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ruleCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tipmod_rule_cache_hits",
	Help: "Number of keyword rule lists served from cache",
})

var ruleCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tipmod_rule_cache_misses",
	Help: "Number of keyword rule lists loaded from the backing store",
})
