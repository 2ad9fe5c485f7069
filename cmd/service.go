package main

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/analysis"
	"github.com/floodwatch/floodmap/internal/attribution"
	"github.com/floodwatch/floodmap/internal/config"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/observability"
	"github.com/floodwatch/floodmap/internal/rastercache"
	"github.com/floodwatch/floodmap/internal/store"
)

// newService assembles the analysis facade from configuration. When
// withStore is set, summary persistence is wired in and the returned
// cleanup closes it.
func newService(ctx context.Context, withStore, withMetrics bool) (*analysis.Service, func(), error) {
	resolver := georef.NewResolver(projectionFromConfig(cfg.Raster), defaultBounds(cfg.Raster))

	strategy, err := attribution.New(cfg.Attribution.Strategy, cfg.Attribution.Workers)
	if err != nil {
		return nil, nil, err
	}

	opts := []analysis.Option{}
	cleanup := func() {}

	if withMetrics {
		opts = append(opts, analysis.WithMetrics(observability.New(prometheus.DefaultRegisterer)))
	}

	if withStore {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		opts = append(opts, analysis.WithStore(st))
		cleanup = func() {
			if err := st.Close(); err != nil {
				zap.L().Warn("store close failed", zap.Error(err))
			}
		}
	}

	svc := analysis.New(rastercache.New(cfg.Cache.MaxEntries), resolver, strategy, opts...)
	return svc, cleanup, nil
}

func projectionFromConfig(rc config.RasterConfig) georef.Projection {
	return georef.Projection{
		Zone:     rc.UTMZone,
		Northern: !strings.EqualFold(rc.Hemisphere, "south"),
	}
}

func defaultBounds(rc config.RasterConfig) georef.Bounds {
	return georef.Bounds{
		North: rc.DefaultNorth,
		South: rc.DefaultSouth,
		East:  rc.DefaultEast,
		West:  rc.DefaultWest,
	}
}

// rasterPath resolves the raster argument, falling back to the configured
// default.
func rasterPath(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Raster.Path
}
