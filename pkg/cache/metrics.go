package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks result-cache Prometheus metrics.
//
// All metrics use the cache_ prefix. A nil *Metrics is a valid no-op sink, so
// tests and embedded uses can skip registration entirely.
type Metrics struct {
	// HitsTotal counts lookups answered from the cache
	HitsTotal prometheus.Counter

	// MissesTotal counts lookups that fell through to execution
	MissesTotal prometheus.Counter

	// InsertionsTotal counts result frames stored
	InsertionsTotal prometheus.Counter

	// EvictionsTotal counts entries dropped to stay under budget
	EvictionsTotal prometheus.Counter

	// Entries tracks current number of cached results
	Entries prometheus.Gauge

	// CostBytes tracks current stored payload bytes
	CostBytes prometheus.Gauge
}

// NewMetrics creates cache metrics registered against reg.
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total result cache lookups answered from the cache",
			},
		),
		MissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total result cache lookups that missed",
			},
		),
		InsertionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_insertions_total",
				Help: "Total result frames inserted into the cache",
			},
		),
		EvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_evictions_total",
				Help: "Total entries evicted to stay under the byte budget",
			},
		),
		Entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_entries",
				Help: "Current number of cached result frames",
			},
		),
		CostBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_cost_bytes",
				Help: "Current total payload bytes held by the cache",
			},
		),
	}

	reg.MustRegister(
		m.HitsTotal,
		m.MissesTotal,
		m.InsertionsTotal,
		m.EvictionsTotal,
		m.Entries,
		m.CostBytes,
	)

	return m
}

// RecordHit records a cache hit.
func (m *Metrics) RecordHit() {
	if m == nil {
		return
	}
	m.HitsTotal.Inc()
}

// RecordMiss records a cache miss.
func (m *Metrics) RecordMiss() {
	if m == nil {
		return
	}
	m.MissesTotal.Inc()
}

// RecordInsertion records a stored result frame.
func (m *Metrics) RecordInsertion() {
	if m == nil {
		return
	}
	m.InsertionsTotal.Inc()
}

// RecordEviction records an evicted entry.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.EvictionsTotal.Inc()
}

// SetOccupancy updates the entry-count and cost gauges.
func (m *Metrics) SetOccupancy(entries int, costBytes uint64) {
	if m == nil {
		return
	}
	m.Entries.Set(float64(entries))
	m.CostBytes.Set(float64(costBytes))
}

// NullMetrics returns nil, which acts as a no-op metrics collector.
// All Metrics methods handle nil receiver gracefully.
func NullMetrics() *Metrics {
	return nil
}
