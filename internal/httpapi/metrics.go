// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import "github.com/prometheus/client_golang/prometheus"

// RequestsTotal counts API requests by route pattern and status code.
var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_http_requests_total",
		Help: "Total number of auth API requests by route and status",
	},
	[]string{"route", "status"},
)

// RateLimitedTotal counts requests rejected by the per-client rate limiter.
var RateLimitedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_http_rate_limited_total",
		Help: "Total number of auth API requests rejected by rate limiting",
	},
	[]string{"route"},
)

// RegisterMetrics registers httpapi metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RequestsTotal)
	reg.MustRegister(RateLimitedTotal)
}
