// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("authcore/auth")

// OutcomeSuccess labels operations that completed without error.
const OutcomeSuccess = "success"

// OperationsTotal counts flow operations by operation and outcome.
// The outcome is "success" or the error code.
var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_auth_operations_total",
		Help: "Total number of authentication operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration observes flow operation latency, password hashing included.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authcore_auth_operation_duration_seconds",
		Help:    "Authentication operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(OperationDuration)
}

// outcomeOf returns the metric label for an operation result.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			return code
		}
	}
	return "error"
}

// startOperation opens a span for a flow operation. The returned function
// ends the span and records metrics; call it with the operation's error.
func startOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := outcomeOf(err)
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()

		OperationsTotal.WithLabelValues(operation, outcome).Inc()
		OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
