// Package metrics exposes store activity as Prometheus metrics.
//
// A nil *Metrics is valid and records nothing, so the store can call it
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cds"

// Error kinds counted by Errors.
const (
	KindIO               = "io"
	KindInvalidHandle    = "invalid_handle"
	KindChecksumMismatch = "checksum_mismatch"
	KindPoolUnavailable  = "pool_unavailable"
)

// Metrics holds all store metrics.
type Metrics struct {
	// Block metrics
	Allocations prometheus.Counter
	Frees       prometheus.Counter
	BytesUsed   prometheus.Gauge
	BytesFree   prometheus.Gauge

	// Registry metrics
	Registrations   *prometheus.CounterVec
	Deletions       *prometheus.CounterVec
	RegistryEntries prometheus.Gauge
	DroppedEntries  prometheus.Counter

	// Data path metrics
	Copies   prometheus.Counter
	Restores prometheus.Counter
	Errors   *prometheus.CounterVec

	// Boot metrics
	Boots *prometheus.CounterVec
}

// New registers the store metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Allocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_allocations_total",
			Help:      "Total number of blocks allocated",
		}),
		Frees: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_frees_total",
			Help:      "Total number of blocks released",
		}),
		BytesUsed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_bytes_used",
			Help:      "Bytes held by allocated blocks, descriptors included",
		}),
		BytesFree: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_bytes_free",
			Help:      "Bytes on free lists plus never-allocated space",
		}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Register calls by result",
		}, []string{"result"}),
		Deletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "Delete calls by result",
		}, []string{"result"}),
		RegistryEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entries",
			Help:      "Number of taken registry slots",
		}),
		DroppedEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_dropped_entries_total",
			Help:      "Registry entries discarded during recovery",
		}),
		Copies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_to_store_total",
			Help:      "Successful CopyToStore calls",
		}),
		Restores: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_from_store_total",
			Help:      "Successful RestoreFromStore calls",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Store errors by kind",
		}, []string{"kind"}),
		Boots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boots_total",
			Help:      "Store boots by outcome",
		}, []string{"outcome"}),
	}
}

// Boot records a boot outcome and the entries recovery dropped.
func (m *Metrics) Boot(outcome string, dropped int) {
	if m == nil {
		return
	}
	m.Boots.WithLabelValues(outcome).Inc()
	m.DroppedEntries.Add(float64(dropped))
}

// Registered records a Register result ("ok", "exists", "error").
func (m *Metrics) Registered(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

// Deleted records a Delete result.
func (m *Metrics) Deleted(result string) {
	if m == nil {
		return
	}
	m.Deletions.WithLabelValues(result).Inc()
}

// Allocated counts n new blocks.
func (m *Metrics) Allocated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Allocations.Add(float64(n))
}

// Freed counts n released blocks.
func (m *Metrics) Freed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Frees.Add(float64(n))
}

// Copied counts a CopyToStore.
func (m *Metrics) Copied() {
	if m == nil {
		return
	}
	m.Copies.Inc()
}

// Restored counts a RestoreFromStore.
func (m *Metrics) Restored() {
	if m == nil {
		return
	}
	m.Restores.Inc()
}

// Error counts an error of the given kind.
func (m *Metrics) Error(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.Errors.WithLabelValues(kind).Inc()
}

// Occupancy sets the pool and registry gauges.
func (m *Metrics) Occupancy(used, free uint64, entries int) {
	if m == nil {
		return
	}
	m.BytesUsed.Set(float64(used))
	m.BytesFree.Set(float64(free))
	m.RegistryEntries.Set(float64(entries))
}
