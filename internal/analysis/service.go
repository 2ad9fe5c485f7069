// Package analysis wires the raster loader, georeferencer, cache, and the
// downstream consumers (attribution, region stats, heatmap) behind one
// facade used by the CLI and the HTTP adapter.
package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/attribution"
	"github.com/floodwatch/floodmap/internal/boundary"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/heatmap"
	"github.com/floodwatch/floodmap/internal/observability"
	"github.com/floodwatch/floodmap/internal/raster"
	"github.com/floodwatch/floodmap/internal/rastercache"
	"github.com/floodwatch/floodmap/internal/region"
	"github.com/floodwatch/floodmap/internal/store"
)

// Service runs flood analyses against cached rasters.
type Service struct {
	cache    *rastercache.Cache
	resolver *georef.Resolver
	strategy attribution.Strategy
	renderer *heatmap.Renderer
	metrics  *observability.Metrics
	store    store.Store // nil when persistence is disabled
	log      *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithStore enables run/summary persistence.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithRenderer overrides the heatmap renderer (tests inject a fake clock).
func WithRenderer(r *heatmap.Renderer) Option {
	return func(svc *Service) { svc.renderer = r }
}

// New builds a Service.
func New(cache *rastercache.Cache, resolver *georef.Resolver, strategy attribution.Strategy, opts ...Option) *Service {
	svc := &Service{
		cache:    cache,
		resolver: resolver,
		strategy: strategy,
		renderer: heatmap.NewRenderer(),
		log:      zap.L().With(zap.String("component", "analysis")),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// load returns the cached grid+bounds for path, decoding at most once per
// key across concurrent callers.
func (s *Service) load(path string) (*rastercache.Entry, error) {
	hit := true
	entry, err := s.cache.GetOrCompute(path, func() (*rastercache.Entry, error) {
		hit = false
		start := time.Now()
		g, err := raster.Load(path)
		if err != nil {
			return nil, err
		}
		b := s.resolver.Resolve(g, path)
		if s.metrics != nil {
			s.metrics.RasterLoadTime.Observe(time.Since(start).Seconds())
		}
		return &rastercache.Entry{Grid: g, Bounds: b}, nil
	})
	if s.metrics != nil {
		result := "hit"
		if !hit {
			result = "miss"
		}
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
	return entry, err
}

// Invalidate drops the cached raster for path. Required after the
// underlying file changes; the cache never expires entries on its own.
func (s *Service) Invalidate(path string) {
	s.cache.Invalidate(path)
}

// ClearCache drops all cached rasters.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// CacheStats exposes cache counters for the HTTP adapter.
func (s *Service) CacheStats() rastercache.Stats {
	return s.cache.Stats()
}

// WardSummaries attributes flood depth to wards. With persistence enabled
// the run and its summaries are recorded; a store failure fails the call
// only after attribution succeeded, and the computed result is still
// returned alongside the error.
func (s *Service) WardSummaries(ctx context.Context, rasterPath string, wards []boundary.Ward) ([]attribution.Summary, error) {
	entry, err := s.load(rasterPath)
	if err != nil {
		s.observe("wards", err)
		return nil, err
	}

	var run *store.Run
	if s.store != nil {
		run, err = s.store.CreateRun(ctx, rasterPath, s.strategy.Name())
		if err != nil {
			s.log.Warn("could not record run, continuing without persistence", zap.Error(err))
			run = nil
		}
	}

	start := time.Now()
	summaries, err := s.strategy.Attribute(ctx, entry.Grid, entry.Bounds, wards)
	if s.metrics != nil {
		s.metrics.ScanDuration.WithLabelValues(s.strategy.Name()).Observe(time.Since(start).Seconds())
		if skipped := len(wards) - len(summaries); skipped > 0 && err == nil {
			s.metrics.WardsSkipped.Add(float64(skipped))
		}
	}
	s.observe("wards", err)
	if err != nil {
		s.finishRun(ctx, run, store.RunStatusFailed)
		return nil, err
	}

	if run != nil {
		if err := s.store.SaveSummaries(ctx, run.ID, summaries); err != nil {
			s.log.Warn("could not persist summaries", zap.String("run", run.ID), zap.Error(err))
			s.finishRun(ctx, run, store.RunStatusFailed)
			return summaries, nil
		}
		s.finishRun(ctx, run, store.RunStatusCompleted)
	}
	return summaries, nil
}

func (s *Service) finishRun(ctx context.Context, run *store.Run, status store.RunStatus) {
	if run == nil {
		return
	}
	if err := s.store.CompleteRun(ctx, run.ID, status); err != nil {
		s.log.Warn("could not finish run", zap.String("run", run.ID), zap.Error(err))
	}
}

// RegionStats aggregates depth statistics over a query box.
func (s *Service) RegionStats(ctx context.Context, rasterPath string, query georef.Bounds) (*region.Stats, error) {
	entry, err := s.load(rasterPath)
	if err != nil {
		s.observe("region", err)
		return nil, err
	}
	stats, err := region.Aggregate(entry.Grid, entry.Bounds, query)
	s.observe("region", err)
	return stats, err
}

// Heatmap renders the raster as a color-ramp image.
func (s *Service) Heatmap(ctx context.Context, rasterPath string) (*heatmap.Image, error) {
	entry, err := s.load(rasterPath)
	if err != nil {
		s.observe("heatmap", err)
		return nil, err
	}
	start := time.Now()
	img := s.renderer.Render(entry.Grid, entry.Bounds)
	if s.metrics != nil {
		s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
	s.observe("heatmap", nil)
	return img, nil
}

func (s *Service) observe(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.AnalysesTotal.WithLabelValues(operation, outcome).Inc()
}
