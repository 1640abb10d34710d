package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "HTTP request duration by route and status",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2.5, 5},
	}, []string{"route", "status"})

	httpSlowRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_slow_requests_total",
		Help: "Requests slower than the configured threshold by route",
	}, []string{"route"})

	httpNotModifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_not_modified_total",
		Help: "Conditional requests answered with 304 Not Modified by route",
	}, []string{"route"})
)
