package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxpack_parsing_seconds",
		Help:    "Time spent extracting facts from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxpack_parse_failures_total",
		Help: "Total number of files whose syntax tree contained errors.",
	})

	IndexLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxpack_index_lookups_total",
		Help: "Location index lookups by outcome (hit, stale, recheck, discovered, not_found).",
	}, []string{"result"})

	AmbiguousTypesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxpack_ambiguous_types_total",
		Help: "Total number of fully-qualified names declared by more than one file.",
	})

	IndexEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ctxpack_index_entries",
		Help: "Number of entries held by the location index after the last run.",
	})

	FilteredImportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxpack_filtered_imports_total",
		Help: "Total number of imports dropped by the namespace filter.",
	})

	UnresolvedImportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxpack_unresolved_imports_total",
		Help: "Total number of in-namespace imports that did not map to a file.",
	})

	TraversalFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ctxpack_traversal_files",
		Help: "Number of files emitted by the last traversal.",
	})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ctxpack_run_seconds",
		Help:    "Time spent on the stages of one run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctxpack_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
