package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_import_runs_total",
		Help: "Import runs by outcome (completed, failed, denied, rejected)",
	}, []string{"outcome"})

	importChunksCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "membership_import_chunks_committed_total",
		Help: "Atomic batches successfully committed to the member store",
	})

	importChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "membership_import_chunk_failures_total",
		Help: "Atomic batches that failed to commit (run aborts on the first)",
	})

	importMembersUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "membership_import_members_upserted_total",
		Help: "Member profiles upserted across all runs",
	})

	importRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "membership_import_run_duration_seconds",
		Help:    "Wall time of complete import runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)
