package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/boundary"
)

var (
	wardsRaster     string
	wardsBoundaries string
	wardsSave       bool
)

var wardsCmd = &cobra.Command{
	Use:   "wards",
	Short: "Attribute average flood depth to administrative wards",
	RunE: func(cmd *cobra.Command, args []string) error {
		boundaryPath := wardsBoundaries
		if boundaryPath == "" {
			boundaryPath = cfg.Boundary.Path
		}
		if boundaryPath == "" {
			return eris.New("no boundary source: pass --boundaries or set boundary.path")
		}

		wards, err := boundary.Load(boundaryPath, cfg.Boundary.NameField)
		if err != nil {
			return err
		}
		zap.L().Info("boundaries loaded",
			zap.String("source", boundaryPath),
			zap.Int("wards", len(wards)),
		)

		svc, cleanup, err := newService(cmd.Context(), wardsSave, false)
		if err != nil {
			return err
		}
		defer cleanup()

		summaries, err := svc.WardSummaries(cmd.Context(), rasterPath(wardsRaster), wards)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	},
}

func init() {
	wardsCmd.Flags().StringVar(&wardsRaster, "raster", "", "flood raster path (default from config)")
	wardsCmd.Flags().StringVar(&wardsBoundaries, "boundaries", "", "ward boundaries: Overpass JSON file, element directory, or shapefile")
	wardsCmd.Flags().BoolVar(&wardsSave, "save", false, "persist the run and summaries to the configured store")
	rootCmd.AddCommand(wardsCmd)
}
