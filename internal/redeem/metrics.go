package redeem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagepass_redemption_requests_total",
		Help: "Redemption API calls, labeled by operation and outcome",
	}, []string{"operation", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stagepass_redemption_request_duration_seconds",
		Help:    "Latency distribution of redemption API calls",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})
)
