// Package api provides Prometheus telemetry for the execution engine.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VanDung-dev/HieraChain-Executor/engine"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Batch metrics
	BatchesTotal    prometheus.Counter
	BatchesRejected prometheus.Counter
	BatchesTimedOut prometheus.Counter
	BatchLatency    prometheus.Histogram
	BatchThroughput prometheus.Gauge

	// Grouping metrics
	ComponentsPerBatch prometheus.Histogram
	ComponentSize      prometheus.Histogram
	ConflictsTotal     prometheus.Counter

	// Task metrics
	TasksTotal   prometheus.Counter
	TaskOutcomes *prometheus.CounterVec
	RetriesTotal prometheus.Counter
	TaskLatency  prometheus.Histogram

	// System metrics
	IntakeDepth     prometheus.Gauge
	BatchSizeTarget prometheus.Gauge
	WorkersActive   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of batches processed",
		}),
		BatchesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_rejected_total",
			Help:      "Total number of malformed batches rejected before scheduling",
		}),
		BatchesTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_timed_out_total",
			Help:      "Total number of batches completed with a partial timeout",
		}),
		BatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_latency_seconds",
			Help:      "Batch processing latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		BatchThroughput: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_throughput_tps",
			Help:      "Transactions per second of the most recent batch",
		}),

		ComponentsPerBatch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "components_per_batch",
			Help:      "Number of conflict components per batch",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
		ComponentSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_size",
			Help:      "Number of transactions per conflict component",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100, 250},
		}),
		ConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_conflicts_total",
			Help:      "Total number of write-involving key collisions detected",
		}),

		TasksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of transactions executed",
		}),
		TaskOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_outcomes_total",
			Help:      "Terminal task outcomes by kind",
		}, []string{"outcome"}),
		RetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solo_retries_total",
			Help:      "Total number of runtime-conflict solo re-executions",
		}),
		TaskLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_latency_seconds",
			Help:      "Per-transaction execution latency in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		IntakeDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_depth",
			Help:      "Current number of tasks buffered upstream of batching",
		}),
		BatchSizeTarget: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_size_target",
			Help:      "Current adaptive batch-size target",
		}),
		WorkersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Number of workers currently executing a transaction",
		}),
	}
}

// RecordReport records one batch report.
func (m *Metrics) RecordReport(report *engine.BatchReport) {
	m.BatchesTotal.Inc()
	m.BatchLatency.Observe(report.TotalDuration.Seconds())
	m.BatchThroughput.Set(report.Throughput)

	m.ComponentsPerBatch.Observe(float64(report.ComponentCount))
	for size, count := range report.SizeHistogram {
		for i := 0; i < count; i++ {
			m.ComponentSize.Observe(float64(size))
		}
	}
	m.ConflictsTotal.Add(float64(report.ConflictCount))
	m.RetriesTotal.Add(float64(report.RetriedTasks))

	if report.PartialTimeout {
		m.BatchesTimedOut.Inc()
	}
}

// RecordResult records one task result.
func (m *Metrics) RecordResult(result *engine.ExecutionResult) {
	m.TasksTotal.Inc()
	m.TaskOutcomes.WithLabelValues(result.Outcome.String()).Inc()
	m.TaskLatency.Observe(result.Duration.Seconds())
}

// RecordRejection records a batch rejected as malformed.
func (m *Metrics) RecordRejection() {
	m.BatchesRejected.Inc()
}

// UpdateIntake updates the intake depth and adaptive target gauges.
func (m *Metrics) UpdateIntake(depth, target int) {
	m.IntakeDepth.Set(float64(depth))
	m.BatchSizeTarget.Set(float64(target))
}

// UpdateWorkers updates the active-workers gauge.
func (m *Metrics) UpdateWorkers(active int64) {
	m.WorkersActive.Set(float64(active))
}

// MetricsServer runs an HTTP server exposing the /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address.
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
