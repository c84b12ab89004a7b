package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// pipelineMetrics counts compilations and times their stages
type pipelineMetrics struct {
	compilations *prometheus.CounterVec
	stageDur     *prometheus.HistogramVec
	objectBytes  *prometheus.HistogramVec
	definitions  prometheus.Gauge

	registry *prometheus.Registry
}

func newPipelineMetrics() *pipelineMetrics {
	const (
		namespace = "calcc"
		subsystem = "pipeline"
	)

	m := &pipelineMetrics{
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compilations_total",
			Help:      "Number of compilation requests by backend and outcome",
		}, []string{"backend", "result"}),

		stageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Histogram of times spent in each compilation stage",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 5, 9),
		}, []string{"stage"}),

		objectBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "object_size_bytes",
			Help:      "Histogram of generated object file sizes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
		}, []string{"backend"}),

		definitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "definitions",
			Help:      "Number of functions defined in the session",
		}),

		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.PrometheusCollectors()...)
	return m
}

func (m *pipelineMetrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.compilations,
		m.stageDur,
		m.objectBytes,
		m.definitions,
	}
}

// WriteTextfile dumps the metrics in the node_exporter textfile format
func (m *pipelineMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
