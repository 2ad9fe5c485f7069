package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.Raster.UTMZone)
	assert.Equal(t, "north", cfg.Raster.Hemisphere)
	assert.InDelta(t, 16.5, cfg.Raster.DefaultNorth, 0.001)
	assert.InDelta(t, 16.3, cfg.Raster.DefaultSouth, 0.001)
	assert.InDelta(t, 107.7, cfg.Raster.DefaultEast, 0.001)
	assert.InDelta(t, 107.5, cfg.Raster.DefaultWest, 0.001)
	assert.Equal(t, "fullscan", cfg.Attribution.Strategy)
	assert.Equal(t, 4, cfg.Attribution.Workers)
	assert.Equal(t, 8, cfg.Cache.MaxEntries)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "floodmap.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
raster:
  path: data/flood.tif
  utm_zone: 49
attribution:
  strategy: floodfill
boundary:
  path: data/wards
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/flood.tif", cfg.Raster.Path)
	assert.Equal(t, 49, cfg.Raster.UTMZone)
	assert.Equal(t, "floodfill", cfg.Attribution.Strategy)
	assert.Equal(t, "data/wards", cfg.Boundary.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, "north", cfg.Raster.Hemisphere)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("FLOODMAP_LOG_LEVEL", "warn")
	t.Setenv("FLOODMAP_ATTRIBUTION_STRATEGY", "floodfill")
	t.Setenv("FLOODMAP_CACHE_MAX_ENTRIES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "floodfill", cfg.Attribution.Strategy)
	assert.Equal(t, 2, cfg.Cache.MaxEntries)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("raster: [unbalanced"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "error", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "verbose"}))
}
