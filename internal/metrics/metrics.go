package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "restaurant",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created, by order type",
		},
		[]string{"order_type"},
	)

	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Order status transitions",
		},
		[]string{"from", "to"},
	)

	PaymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "payments",
			Name:      "recorded_total",
			Help:      "Payments recorded, by method",
		},
		[]string{"method"},
	)

	PaymentConfirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "payments",
			Name:      "gateway_confirmations_total",
			Help:      "Gateway payment confirmations, by outcome",
		},
		[]string{"outcome"},
	)

	LoyaltyCreditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Subsystem: "loyalty",
			Name:      "credit_failures_total",
			Help:      "Automatic loyalty credits that failed and were skipped",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPDuration,
			HTTPRequests,
			OrdersCreated,
			OrderTransitions,
			PaymentsRecorded,
			PaymentConfirmations,
			LoyaltyCreditFailures,
		)
	})
}
