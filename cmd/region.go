package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/floodwatch/floodmap/internal/georef"
)

var (
	regionRaster string
	regionQuery  georef.Bounds
)

var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Compute flood statistics for a bounding box",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := svc.RegionStats(cmd.Context(), rasterPath(regionRaster), regionQuery)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	regionCmd.Flags().StringVar(&regionRaster, "raster", "", "flood raster path (default from config)")
	regionCmd.Flags().Float64Var(&regionQuery.North, "north", 0, "query north edge in degrees")
	regionCmd.Flags().Float64Var(&regionQuery.South, "south", 0, "query south edge in degrees")
	regionCmd.Flags().Float64Var(&regionQuery.East, "east", 0, "query east edge in degrees")
	regionCmd.Flags().Float64Var(&regionQuery.West, "west", 0, "query west edge in degrees")
	_ = regionCmd.MarkFlagRequired("north")
	_ = regionCmd.MarkFlagRequired("south")
	_ = regionCmd.MarkFlagRequired("east")
	_ = regionCmd.MarkFlagRequired("west")
	rootCmd.AddCommand(regionCmd)
}
