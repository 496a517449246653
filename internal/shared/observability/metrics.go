package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "treegrep_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "treegrep_query_seconds",
		Help:    "Time spent running the compiled query over one parse tree.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treegrep_files_discovered_total",
		Help: "Total number of filesystem entries produced by discovery.",
	})

	FilesSearchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treegrep_files_searched_total",
		Help: "Total number of files parsed and queried.",
	}, []string{"language"})

	FilesMatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treegrep_files_matched_total",
		Help: "Total number of files with at least one record.",
	}, []string{"language"})

	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treegrep_records_total",
		Help: "Total number of extracted records.",
	}, []string{"language"})

	FileFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treegrep_file_failures_total",
		Help: "Total number of files that could not be searched, by error code.",
	}, []string{"code"})

	TraversalWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treegrep_traversal_warnings_total",
		Help: "Total number of unreadable directories or ignore files skipped during discovery.",
	})

	DiscoveryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "treegrep_discovery_queue_depth",
		Help: "Current number of discovered entries waiting for selection.",
	})

	ParsersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "treegrep_parsers_active",
		Help: "Number of parsers currently leased, per language.",
	}, []string{"language"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treegrep_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treegrep_watcher_unchanged_total",
		Help: "Total number of changed files skipped because their content digest was already seen.",
	})
)

// WriteTextfile writes every registered metric to path in the Prometheus
// text exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
