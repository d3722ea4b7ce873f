package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry and served on /metrics.

var (
	RefreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "honeywatch",
			Subsystem: "liveview",
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by result (ok, error, canceled)",
		},
		[]string{"result"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "honeywatch",
			Subsystem: "liveview",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a read-and-aggregate refresh cycle",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
	)

	RefreshSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "honeywatch",
			Subsystem: "liveview",
			Name:      "refresh_skipped_total",
			Help:      "Polling ticks skipped because a refresh was still in flight",
		},
	)

	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "honeywatch",
			Subsystem: "liveview",
			Name:      "snapshot_records",
			Help:      "Number of records in the latest published snapshot",
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "honeywatch",
			Subsystem: "liveview",
			Name:      "subscribers",
			Help:      "Active live-view subscribers",
		},
	)

	MalformedLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "honeywatch",
			Subsystem: "eventstore",
			Name:      "malformed_lines_total",
			Help:      "Record store lines skipped because they did not parse as an event object",
		},
		[]string{"source"},
	)

	ReportGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "honeywatch",
			Subsystem: "report",
			Name:      "generations_total",
			Help:      "Report generation attempts by result (ok, failed, rejected)",
		},
		[]string{"result"},
	)
)
