package kiosk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stagepass_kiosk_requests_total",
		Help: "Kiosk API requests by endpoint and outcome.",
	},
	[]string{"endpoint", "outcome"},
)

func observe(endpoint, outcome string) {
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
}
