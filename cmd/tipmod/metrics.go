package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tipmod")

var tipsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tipmod_tips_received",
	Help: "Number of tips submitted for moderation",
})

var apiErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tipmod_api_errors",
	Help: "Number of API requests which failed, by status code",
}, []string{"code"})
