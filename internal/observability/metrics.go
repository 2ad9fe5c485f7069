// Package observability exposes Prometheus metrics for the analysis core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for raster analysis.
type Metrics struct {
	AnalysesTotal   *prometheus.CounterVec // labels: operation={wards,region,heatmap}, outcome={success,error}
	WardsSkipped    prometheus.Counter
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss}
	ScanDuration    *prometheus.HistogramVec
	RasterLoadTime  prometheus.Histogram
	RenderDuration  prometheus.Histogram
}

// New creates the metric set and registers it with reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodmap",
			Name:      "analyses_total",
			Help:      "Analysis operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		WardsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodmap",
			Name:      "wards_skipped_total",
			Help:      "Wards skipped for missing or degenerate boundary geometry.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodmap",
			Name:      "raster_cache_lookups_total",
			Help:      "Raster cache lookups by result.",
		}, []string{"result"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "floodmap",
			Name:      "scan_duration_seconds",
			Help:      "Duration of grid scans by attribution strategy.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"strategy"}),
		RasterLoadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodmap",
			Name:      "raster_load_seconds",
			Help:      "Time to decode and georeference a raster on cache miss.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodmap",
			Name:      "render_duration_seconds",
			Help:      "Heatmap render time.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.WardsSkipped,
		m.CacheLookups,
		m.ScanDuration,
		m.RasterLoadTime,
		m.RenderDuration,
	)
	return m
}
