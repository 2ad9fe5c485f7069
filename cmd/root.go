package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "floodmap",
	Short: "Flood raster analysis and geo-attribution",
	Long:  "Decodes flood-depth rasters, attributes average depth to administrative wards, answers bounding-box statistics queries, and renders color heatmaps.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
