// Package metrics exports tick, system and pool measurements to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/event"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// Metrics implements the runner observer and samples tree pools.
type Metrics struct {
	ticks          prometheus.Counter
	tickDuration   prometheus.Histogram
	systemDuration *prometheus.HistogramVec
	entities       prometheus.Gauge
	poolSize       *prometheus.GaugeVec
	files          *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "rift_ticks_total",
			Help: "Total runner ticks",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rift_tick_duration_seconds",
			Help:    "Duration of a full tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		}),
		systemDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rift_system_duration_seconds",
			Help:    "Duration of one system update",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"system", "phase"}),
		entities: f.NewGauge(prometheus.GaugeOpts{
			Name: "rift_entities",
			Help: "Live entities in the tree",
		}),
		poolSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rift_pool_size",
			Help: "Entities holding each component",
		}, []string{"component"}),
		files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rift_file_events_total",
			Help: "File loads and saves by result",
		}, []string{"op", "result"}),
	}
}

func (m *Metrics) ObserveSystem(name string, phase coresys.Phase, d time.Duration) {
	m.systemDuration.WithLabelValues(name, phase.String()).Observe(d.Seconds())
}

func (m *Metrics) ObserveTick(d time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// SamplePools sets the entity and pool gauges from t. Pools emptied since
// the last sample drop to zero.
func (m *Metrics) SamplePools(t *ast.Tree) {
	m.entities.Set(float64(t.Context().Size()))
	m.poolSize.Reset()
	for _, s := range ast.PoolStats(t) {
		m.poolSize.WithLabelValues(s.Component).Set(float64(s.Len))
	}
}

// Subscribe counts file events from bus.
func (m *Metrics) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(event.FileLoaded) { m.files.WithLabelValues("load", "ok").Inc() })
	event.Subscribe(bus, func(event.FileLoadFailed) { m.files.WithLabelValues("load", "error").Inc() })
	event.Subscribe(bus, func(ev event.FileSaved) {
		result := "written"
		if ev.Skipped {
			result = "skipped"
		}
		m.files.WithLabelValues("save", result).Inc()
	})
}
