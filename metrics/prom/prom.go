// Package prom exports intern table and consolidation daemon signals as
// Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/hashcons/consolidate"
	"github.com/IvanBrykalov/hashcons/intern"
	"github.com/IvanBrykalov/hashcons/value"
)

// Adapter owns the metric families. Per-table sinks share them and differ
// only by the "table" label. Safe for concurrent use; all Prometheus metric
// types are goroutine-safe.
type Adapter struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	evicts  *prometheus.CounterVec
	entries *prometheus.GaugeVec

	cycles    prometheus.Counter
	cycleDur  prometheus.Histogram
	replaced  prometheus.Counter
	conflicts prometheus.Counter
	failures  prometheus.Counter
}

// New constructs the adapter and registers its collectors.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns:           Prometheus namespace
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	table := []string{"table"}
	a := &Adapter{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "intern",
			Name:        "hits_total",
			Help:        "Canonical instances returned from a table",
			ConstLabels: constLabels,
		}, table),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "intern",
			Name:        "misses_total",
			Help:        "Candidates admitted as new canonical instances",
			ConstLabels: constLabels,
		}, table),
		evicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "intern",
			Name:        "evictions_total",
			Help:        "Entries dropped to respect table capacity",
			ConstLabels: constLabels,
		}, table),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   "intern",
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}, table),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "consolidate",
			Name:        "cycles_total",
			Help:        "Completed consolidation cycles",
			ConstLabels: constLabels,
		}),
		cycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   "consolidate",
			Name:        "cycle_duration_seconds",
			Help:        "Wall time of one consolidation cycle",
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10),
			ConstLabels: constLabels,
		}),
		replaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "consolidate",
			Name:        "replacements_total",
			Help:        "Element slots rewritten to a canonical instance",
			ConstLabels: constLabels,
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "consolidate",
			Name:        "conflicts_total",
			Help:        "Document passes retried after a concurrent edit",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "consolidate",
			Name:        "failures_total",
			Help:        "Documents skipped after an error",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.entries,
		a.cycles, a.cycleDur, a.replaced, a.conflicts, a.failures)
	return a
}

// Table returns the sink for one table.
func (a *Adapter) Table(name string) intern.Metrics {
	return &tableMetrics{
		hit:   a.hits.WithLabelValues(name),
		miss:  a.misses.WithLabelValues(name),
		evict: a.evicts.WithLabelValues(name),
		size:  a.entries.WithLabelValues(name),
	}
}

// Kinds adapts Table to intern.Options.Metrics, labelling tables by kind name.
func (a *Adapter) Kinds() func(value.Kind) intern.Metrics {
	return func(k value.Kind) intern.Metrics { return a.Table(k.String()) }
}

// Daemon returns the sink for consolidation cycles.
func (a *Adapter) Daemon() consolidate.Metrics { return daemonMetrics{a} }

type tableMetrics struct {
	hit, miss, evict prometheus.Counter
	size             prometheus.Gauge
}

func (m *tableMetrics) Hit()       { m.hit.Inc() }
func (m *tableMetrics) Miss()      { m.miss.Inc() }
func (m *tableMetrics) Evict()     { m.evict.Inc() }
func (m *tableMetrics) Size(n int) { m.size.Set(float64(n)) }

type daemonMetrics struct{ a *Adapter }

func (m daemonMetrics) Cycle(d time.Duration) {
	m.a.cycles.Inc()
	m.a.cycleDur.Observe(d.Seconds())
}

func (m daemonMetrics) Replaced(n int) { m.a.replaced.Add(float64(n)) }
func (m daemonMetrics) Conflict()      { m.a.conflicts.Inc() }
func (m daemonMetrics) Failed()        { m.a.failures.Inc() }

var (
	_ intern.Metrics      = (*tableMetrics)(nil)
	_ consolidate.Metrics = daemonMetrics{}
)
