// Package config loads application configuration from a YAML file and
// FLOODMAP_-prefixed environment variables, and installs the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Raster      RasterConfig      `yaml:"raster" mapstructure:"raster"`
	Boundary    BoundaryConfig    `yaml:"boundary" mapstructure:"boundary"`
	Attribution AttributionConfig `yaml:"attribution" mapstructure:"attribution"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// RasterConfig configures raster georeferencing.
type RasterConfig struct {
	// Path is the default raster consumed by commands that do not name one.
	Path string `yaml:"path" mapstructure:"path"`
	// UTMZone and Hemisphere identify the source projected coordinate
	// system of world-file georeferencing.
	UTMZone    int    `yaml:"utm_zone" mapstructure:"utm_zone"`
	Hemisphere string `yaml:"hemisphere" mapstructure:"hemisphere"`
	// Default* is the fallback region when a raster carries no usable
	// georeferencing.
	DefaultNorth float64 `yaml:"default_north" mapstructure:"default_north"`
	DefaultSouth float64 `yaml:"default_south" mapstructure:"default_south"`
	DefaultEast  float64 `yaml:"default_east" mapstructure:"default_east"`
	DefaultWest  float64 `yaml:"default_west" mapstructure:"default_west"`
}

// BoundaryConfig configures the ward boundary source.
type BoundaryConfig struct {
	// Path is an Overpass JSON file, a directory of per-element JSON
	// files, or a shapefile.
	Path string `yaml:"path" mapstructure:"path"`
	// NameField is the shapefile attribute carrying the ward name.
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// AttributionConfig selects and tunes the attribution strategy.
type AttributionConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
	Workers  int    `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig sizes the raster cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// StoreConfig configures optional summary persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLOODMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("raster.utm_zone", 48)
	v.SetDefault("raster.hemisphere", "north")
	v.SetDefault("raster.default_north", 16.5)
	v.SetDefault("raster.default_south", 16.3)
	v.SetDefault("raster.default_east", 107.7)
	v.SetDefault("raster.default_west", 107.5)
	v.SetDefault("attribution.strategy", "fullscan")
	v.SetDefault("attribution.workers", 4)
	v.SetDefault("cache.max_entries", 8)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "floodmap.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
