package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/imagery-cli/internal/config"
	"github.com/sells-group/imagery-cli/internal/geo"
	"github.com/sells-group/imagery-cli/internal/imagery"
)

var bboxCmd = &cobra.Command{
	Use:   "bbox",
	Short: "Print the bounding box and export URL for a coordinate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		side, _ := cmd.Flags().GetFloat64("side")
		return runBBox(cfg, lat, lon, side, cmd.OutOrStdout())
	},
}

func init() {
	bboxCmd.Flags().Float64("lat", 0, "latitude in decimal degrees")
	bboxCmd.Flags().Float64("lon", 0, "longitude in decimal degrees")
	bboxCmd.Flags().Float64("side", 0, "side length in meters (default: export.area_meters)")
	_ = bboxCmd.MarkFlagRequired("lat")
	_ = bboxCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(bboxCmd)
}

func runBBox(c *config.Config, lat, lon, side float64, out io.Writer) error {
	opts := imageryOptions(c.Export)
	if side > 0 {
		opts.AreaMeters = side
	}

	bbox := geo.ComputeBoundingBox(lat, lon, opts.AreaMeters)
	wkt, err := bbox.WKT()
	if err != nil {
		return err
	}
	exportURL, err := imagery.NewClient(opts).ExportURL(bbox)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "bbox: %s\n", bbox)
	fmt.Fprintf(out, "wkt:  %s\n", wkt)
	fmt.Fprintf(out, "url:  %s\n", exportURL)
	return nil
}
