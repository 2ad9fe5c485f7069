package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/analysis"
	"github.com/floodwatch/floodmap/internal/boundary"
	"github.com/floodwatch/floodmap/internal/georef"
	"github.com/floodwatch/floodmap/internal/raster"
	"github.com/floodwatch/floodmap/internal/region"
)

// apiServer exposes the analysis facade over HTTP. Authentication and
// boundary fetching live in front of / beside this service, not in it.
type apiServer struct {
	svc           *analysis.Service
	wards         []boundary.Ward
	defaultRaster string
}

func (a *apiServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/wards", a.handleWards)
		r.Get("/region", a.handleRegion)
		r.Get("/heatmap", a.handleHeatmap)
		r.Get("/heatmap/meta", a.handleHeatmapMeta)
		r.Get("/cache/stats", a.handleCacheStats)
		r.Post("/cache/clear", a.handleCacheClear)
		r.Post("/cache/invalidate", a.handleCacheInvalidate)
	})
	return r
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiServer) handleWards(w http.ResponseWriter, r *http.Request) {
	if len(a.wards) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no ward boundaries configured")
		return
	}
	summaries, err := a.svc.WardSummaries(r.Context(), a.raster(r), a.wards)
	if err != nil {
		a.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (a *apiServer) handleRegion(w http.ResponseWriter, r *http.Request) {
	query, err := boundsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := a.svc.RegionStats(r.Context(), a.raster(r), query)
	if err != nil {
		if eris.Is(err, region.ErrInvalidBounds) {
			writeError(w, http.StatusBadRequest, "invalid query bounds")
			return
		}
		a.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *apiServer) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	img, err := a.svc.Heatmap(r.Context(), a.raster(r))
	if err != nil {
		a.writeAnalysisError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := img.WritePNG(w); err != nil {
		zap.L().Error("heatmap write failed", zap.Error(err))
	}
}

func (a *apiServer) handleHeatmapMeta(w http.ResponseWriter, r *http.Request) {
	img, err := a.svc.Heatmap(r.Context(), a.raster(r))
	if err != nil {
		a.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, img.Meta)
}

func (a *apiServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.CacheStats())
}

func (a *apiServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	a.svc.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (a *apiServer) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("raster")
	if path == "" {
		writeError(w, http.StatusBadRequest, "raster query parameter is required")
		return
	}
	a.svc.Invalidate(path)
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "raster": path})
}

func (a *apiServer) raster(r *http.Request) string {
	if p := r.URL.Query().Get("raster"); p != "" {
		return p
	}
	return a.defaultRaster
}

func (a *apiServer) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, raster.ErrNotFound):
		writeError(w, http.StatusNotFound, "raster not found")
	case eris.Is(err, raster.ErrDecode), eris.Is(err, georef.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func boundsFromQuery(r *http.Request) (georef.Bounds, error) {
	var b georef.Bounds
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"north", &b.North},
		{"south", &b.South},
		{"east", &b.East},
		{"west", &b.West},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			return b, eris.Errorf("%s query parameter is required", p.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return b, eris.Errorf("%s must be numeric", p.name)
		}
		*p.dst = v
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
