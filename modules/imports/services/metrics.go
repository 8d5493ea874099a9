package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	transitionsTotal  *prometheus.CounterVec
	itemsTotal        *prometheus.CounterVec
	importDuration    *prometheus.HistogramVec
	filtersApplied    *prometheus.CounterVec
	watchdogTimeouts  prometheus.Counter
	autoCleanedTotal  prometheus.Counter
	rowsAffectedTotal prometheus.Counter
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		transitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imports",
			Name:      "transitions_total",
			Help:      "Import status transitions by target status.",
		}, []string{"status"}),
		itemsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imports",
			Name:      "items_total",
			Help:      "Import item outcomes by status.",
		}, []string{"status"}),
		importDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "imports",
			Name:      "import_duration_seconds",
			Help:      "Time from claim to terminal status of an import.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2.5, 12),
		}, []string{"type", "result"}),
		filtersApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imports",
			Name:      "filters_applied_total",
			Help:      "Reusable filters applied after imports.",
		}, []string{"result"}),
		watchdogTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "imports",
			Name:      "watchdog_timeouts_total",
			Help:      "Imports failed by the watchdog.",
		}),
		autoCleanedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "imports",
			Name:      "auto_cleaned_total",
			Help:      "Imports cleaned by the retention sweep.",
		}),
		rowsAffectedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "imports",
			Name:      "filter_rows_affected_total",
			Help:      "Journal entries updated by post-import filters.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
