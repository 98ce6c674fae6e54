// Package metrics exposes Prometheus instrumentation for the service
// layer. The recommendation core stays metric-free; everything here is
// recorded at the API boundary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsAcceptedTotal counts interaction records that passed
	// validation and were appended to the store.
	EventsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recsd_events_accepted_total",
		Help: "Total number of ingested interaction events accepted",
	})

	// EventsRejectedTotal counts rows filtered out during ingest
	// validation (missing IDs or unknown event types).
	EventsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recsd_events_rejected_total",
		Help: "Total number of ingested interaction events rejected",
	})

	// IngestBatchesTotal counts ingest requests, regardless of how many
	// rows each carried.
	IngestBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recsd_ingest_batches_total",
		Help: "Total number of ingest batches received",
	})

	// RecommendRequestsTotal counts recommendation queries by outcome:
	// "ok" when at least one item was returned, "empty" otherwise.
	RecommendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsd_recommend_requests_total",
		Help: "Total number of recommendation queries served",
	}, []string{"result"})

	// RecommendDuration tracks end-to-end query latency, including
	// snapshot copy and matrix construction.
	RecommendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsd_recommend_duration_seconds",
		Help:    "Duration of recommendation queries in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)
