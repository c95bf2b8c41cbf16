// Package metrics exposes the core's prometheus counters. The /metrics
// endpoint is served by cmd/api via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns counts full sync attempts by outcome (ok, partial, skipped).
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_sync_runs_total",
		Help: "Full sync attempts by outcome.",
	}, []string{"outcome"})

	// RemoteFailures counts failed remote store calls by operation.
	RemoteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_remote_failures_total",
		Help: "Failed remote store calls by operation.",
	}, []string{"op"})

	// CacheFailures counts swallowed local cache errors.
	CacheFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_cache_failures_total",
		Help: "Local cache errors (logged, non-fatal).",
	})

	// SubjectsTracked reports the current in-memory subject count.
	SubjectsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "classtrack_subjects_tracked",
		Help: "Subjects currently held in memory.",
	})
)
