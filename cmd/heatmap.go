package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	heatmapRaster string
	heatmapOut    string
	heatmapMeta   string
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Render the flood raster as a color-ramp PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer cleanup()

		img, err := svc.Heatmap(cmd.Context(), rasterPath(heatmapRaster))
		if err != nil {
			return err
		}

		out, err := os.Create(heatmapOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", heatmapOut)
		}
		defer func() { _ = out.Close() }()
		if err := img.WritePNG(out); err != nil {
			return err
		}

		metaPath := heatmapMeta
		if metaPath == "" {
			metaPath = strings.TrimSuffix(heatmapOut, ".png") + ".json"
		}
		meta, err := os.Create(metaPath)
		if err != nil {
			return eris.Wrapf(err, "create %s", metaPath)
		}
		defer func() { _ = meta.Close() }()
		if err := img.WriteMetadata(meta); err != nil {
			return err
		}

		zap.L().Info("heatmap written",
			zap.String("image", heatmapOut),
			zap.String("metadata", metaPath),
			zap.Float64("min_depth", img.Meta.MinDepth),
			zap.Float64("max_depth", img.Meta.MaxDepth),
		)
		return nil
	},
}

func init() {
	heatmapCmd.Flags().StringVar(&heatmapRaster, "raster", "", "flood raster path (default from config)")
	heatmapCmd.Flags().StringVar(&heatmapOut, "out", "heatmap.png", "output PNG path")
	heatmapCmd.Flags().StringVar(&heatmapMeta, "meta", "", "metadata JSON path (default: output with .json extension)")
	rootCmd.AddCommand(heatmapCmd)
}
