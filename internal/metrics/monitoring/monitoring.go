// Package monitoring exposes the ingestion path's prometheus counters.
package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_received_total",
			Help: "Total order events delivered by the broker",
		},
	)

	EventsInvalidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_invalid_total",
			Help: "Total order events rejected as unparseable",
		},
	)

	EventsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_duplicate_total",
			Help: "Total redelivered order events skipped by the dedup key",
		},
	)

	MetricsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metrics_recorded_total",
			Help: "Total metric rows inserted",
		},
	)

	RecordFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metric_record_failures_total",
			Help: "Total metric inserts that failed and were requeued",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsReceivedTotal,
		EventsInvalidTotal,
		EventsDuplicateTotal,
		MetricsRecordedTotal,
		RecordFailuresTotal,
	)
}
