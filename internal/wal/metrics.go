package wal

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AppendTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_append_total",
			Help: "Total number of records appended.",
		},
	)

	AppendBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_append_bytes_total",
			Help: "Total number of content bytes appended.",
		},
	)

	ReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_read_total",
			Help: "Total number of random access reads.",
		},
	)

	RotationTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_rotation_total",
			Help: "Total number of segment rotations executed.",
		},
	)

	RotationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wal_rotation_duration_seconds",
			Help:    "Duration of segment rotations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	CompactionRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_compaction_removed_total",
			Help: "Total number of segment files removed by compaction.",
		},
	)
)

// RegisterMetrics registers all metrics collectors with the given prometheus registerer.
func RegisterMetrics(registerer prometheus.Registerer) error {
	metrics := []prometheus.Collector{
		AppendTotal,
		AppendBytes,
		ReadTotal,
		RotationTotal,
		RotationDuration,
		CompactionRemovedTotal,
	}
	for _, metric := range metrics {
		if err := registerer.Register(metric); err != nil {
			return err
		}
	}
	return nil
}
