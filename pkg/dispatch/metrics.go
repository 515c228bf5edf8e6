package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks scheduler Prometheus metrics. A nil *Metrics is a valid
// no-op sink.
type Metrics struct {
	// FramesTotal counts received payloads by discriminator
	FramesTotal *prometheus.CounterVec

	// InvalidTotal counts InvalidRequest replies by error code
	InvalidTotal *prometheus.CounterVec

	// ClientsConnected tracks authorized connections
	ClientsConnected prometheus.Gauge

	// TasksActive tracks tasks between launch and terminal outcome
	TasksActive prometheus.Gauge
}

// NewMetrics creates dispatcher metrics registered against reg.
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frames_received_total",
				Help: "Total payloads received from clients by request type",
			},
			[]string{"type"},
		),
		InvalidTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invalid_requests_total",
				Help: "Total InvalidRequest replies sent by error code",
			},
			[]string{"code"},
		),
		ClientsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "clients_connected",
				Help: "Authorized client connections",
			},
		),
		TasksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tasks_active",
				Help: "Tasks between launch and terminal outcome",
			},
		),
	}

	reg.MustRegister(
		m.FramesTotal,
		m.InvalidTotal,
		m.ClientsConnected,
		m.TasksActive,
	)

	return m
}

// RecordFrame records one received payload.
func (m *Metrics) RecordFrame(frameType string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(frameType).Inc()
}

// RecordInvalid records one InvalidRequest reply.
func (m *Metrics) RecordInvalid(code string) {
	if m == nil {
		return
	}
	m.InvalidTotal.WithLabelValues(code).Inc()
}

// SetClients records the authorized connection count.
func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.ClientsConnected.Set(float64(n))
}

// SetTasksActive records the in-flight task count.
func (m *Metrics) SetTasksActive(n int) {
	if m == nil {
		return
	}
	m.TasksActive.Set(float64(n))
}

// NullMetrics returns nil, which acts as a no-op metrics collector.
// All Metrics methods handle nil receiver gracefully.
func NullMetrics() *Metrics {
	return nil
}
