// Package metrics provides Prometheus metrics for the overlap service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PersonIngestsTotal tracks person ingestion requests by outcome
	PersonIngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlap",
			Subsystem: "ingest",
			Name:      "persons_total",
			Help:      "Total number of person ingestion requests by outcome",
		},
		[]string{"source", "outcome"},
	)

	// ChildRowsWritten tracks child rows written per category during ingestion
	ChildRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlap",
			Subsystem: "ingest",
			Name:      "child_rows_written_total",
			Help:      "Total number of child rows written during ingestion by category",
		},
		[]string{"category"},
	)

	// PagesFetched tracks pages pulled by the paginated fetcher
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlap",
			Subsystem: "fetch",
			Name:      "pages_total",
			Help:      "Total number of pages fetched by relation",
		},
		[]string{"relation"},
	)

	// RefreshesTotal tracks alumni count refresh invocations by outcome
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlap",
			Subsystem: "refresh",
			Name:      "alumni_counts_total",
			Help:      "Total number of alumni count refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// RefreshDuration tracks how long an alumni count refresh takes
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "overlap",
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Duration of alumni count refreshes in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
)
