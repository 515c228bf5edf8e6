package tcp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks transport Prometheus metrics. A nil *Metrics is a valid
// no-op sink, and it satisfies adapter.MetricsRecorder either way.
type Metrics struct {
	// ConnectionsAccepted counts sockets accepted from the listener
	ConnectionsAccepted prometheus.Counter

	// ConnectionsClosed counts sockets whose handler finished
	ConnectionsClosed prometheus.Counter

	// ConnectionsForceClosed counts sockets closed by shutdown timeout
	ConnectionsForceClosed prometheus.Counter

	// ActiveConnections tracks currently open sockets
	ActiveConnections prometheus.Gauge

	// AuthFailures counts rejected handshakes by reason
	AuthFailures *prometheus.CounterVec
}

// NewMetrics creates transport metrics registered against reg.
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "connections_accepted_total",
				Help: "Total sockets accepted from the listener",
			},
		),
		ConnectionsClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "connections_closed_total",
				Help: "Total sockets whose connection handler finished",
			},
		),
		ConnectionsForceClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "connections_force_closed_total",
				Help: "Total sockets force-closed when shutdown timed out",
			},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "connections_active",
				Help: "Currently open sockets",
			},
		),
		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_failures_total",
				Help: "Rejected handshakes by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsClosed,
		m.ConnectionsForceClosed,
		m.ActiveConnections,
		m.AuthFailures,
	)

	return m
}

// RecordConnectionAccepted implements adapter.MetricsRecorder.
func (m *Metrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.ConnectionsAccepted.Inc()
}

// RecordConnectionClosed implements adapter.MetricsRecorder.
func (m *Metrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsClosed.Inc()
}

// RecordConnectionForceClosed implements adapter.MetricsRecorder.
func (m *Metrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.ConnectionsForceClosed.Inc()
}

// SetActiveConnections implements adapter.MetricsRecorder.
func (m *Metrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.ActiveConnections.Set(float64(count))
}

// RecordAuthFailure records one rejected handshake.
func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// NullMetrics returns nil, which acts as a no-op metrics collector.
// All Metrics methods handle nil receiver gracefully.
func NullMetrics() *Metrics {
	return nil
}
