package compute

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks executor and pool Prometheus metrics.
//
// All metrics use the tasks_/pool_ prefixes. A nil *Metrics is a valid no-op
// sink.
type Metrics struct {
	// TasksTotal counts finished tasks by kind and terminal status
	TasksTotal *prometheus.CounterVec

	// TaskDuration tracks task wall time by kind
	TaskDuration *prometheus.HistogramVec

	// ChunksTotal counts chunk closures executed
	ChunksTotal prometheus.Counter

	// QueueDepth tracks jobs accepted by the pool but not yet running
	QueueDepth prometheus.Gauge
}

// NewMetrics creates executor metrics registered against reg.
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_total",
				Help: "Total finished tasks by kind and terminal status",
			},
			[]string{"kind", "status"}, // status: "completed", "cancelled", "failed"
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "task_duration_seconds",
				Help:    "Task wall time from launch to terminal outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		ChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chunks_executed_total",
				Help: "Total chunk closures executed by the pool",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pool_queue_depth",
				Help: "Jobs accepted by the worker pool but not yet running",
			},
		),
	}

	reg.MustRegister(
		m.TasksTotal,
		m.TaskDuration,
		m.ChunksTotal,
		m.QueueDepth,
	)

	return m
}

// RecordTask records a task's terminal outcome.
func (m *Metrics) RecordTask(kind, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(kind, status).Inc()
	m.TaskDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordChunk records one executed chunk closure.
func (m *Metrics) RecordChunk() {
	if m == nil {
		return
	}
	m.ChunksTotal.Inc()
}

// RecordEnqueued records a job entering the pool queue.
func (m *Metrics) RecordEnqueued() {
	if m == nil {
		return
	}
	m.QueueDepth.Inc()
}

// RecordDequeued records a job leaving the pool queue for a worker.
func (m *Metrics) RecordDequeued() {
	if m == nil {
		return
	}
	m.QueueDepth.Dec()
}

// NullMetrics returns nil, which acts as a no-op metrics collector.
// All Metrics methods handle nil receiver gracefully.
func NullMetrics() *Metrics {
	return nil
}
