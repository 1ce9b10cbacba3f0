// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import "github.com/prometheus/client_golang/prometheus"

// Delivery status labels.
const (
	StatusSent        = "sent"
	StatusFailed      = "failed"
	StatusBreakerOpen = "breaker_open"
)

// NotificationsTotal counts delivery attempts by provider and final status.
var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_notifications_total",
		Help: "Total number of mail deliveries by provider and status",
	},
	[]string{"provider", "status"},
)

// RegisterMetrics registers notify metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(NotificationsTotal)
}
