package reduxmapper

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics accumulates run statistics in a private registry, written out in the node
// exporter textfile format. In watch mode it accumulates across runs.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	reducers       prometheus.Gauge
	globalReducers prometheus.Gauge
	containerFiles prometheus.Gauge
	traversal      *prometheus.GaugeVec
}

// NewMetrics creates the run metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reduxmapper",
			Name:      "runs_total",
			Help:      "Mapping runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reduxmapper",
			Name:      "run_duration_seconds",
			Help:      "Duration of successful mapping runs",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		reducers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reduxmapper",
			Name:      "reducers",
			Help:      "Reducer definitions found by the last run",
		}),
		globalReducers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reduxmapper",
			Name:      "global_reducers",
			Help:      "Reducers reachable from the main application file",
		}),
		containerFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reduxmapper",
			Name:      "container_files",
			Help:      "Container files mapped by the last run",
		}),
		traversal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "reduxmapper",
			Name:      "traversal_events",
			Help:      "Import graph traversal counters of the last run",
		}, []string{"event"}),
	}
}

// Observe records the outcome of one run. res is ignored when err is set.
func (m *Metrics) Observe(res *Result, err error) {
	if err != nil {
		outcome := "error"
		if code, ok := CodeOf(err); ok {
			outcome = fmt.Sprintf("error_%d", -int(code))
		}
		m.runsTotal.WithLabelValues(outcome).Inc()
		return
	}
	m.runsTotal.WithLabelValues("success").Inc()
	m.runDuration.Observe(res.Stats.Elapsed.Seconds())
	m.reducers.Set(float64(res.Stats.Reducers))
	m.globalReducers.Set(float64(len(res.Global)))
	m.containerFiles.Set(float64(res.Stats.ContainerFiles))

	t := res.Stats.Traversal
	for event, v := range map[string]int{
		"files_scanned": t.FilesScanned,
		"usages_found":  t.UsagesFound,
		"cache_hits":    t.CacheHits,
		"cache_misses":  t.CacheMisses,
		"unresolved":    t.Unresolved,
		"skipped_edges": t.SkippedEdges,
		"cycle_cuts":    t.CycleCuts,
	} {
		m.traversal.WithLabelValues(event).Set(float64(v))
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
