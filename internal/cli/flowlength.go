package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/vector"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var flowLengthCmd = &cobra.Command{
	Use:   "flow_length <fdr> <drainage-points.geojson> <output-raster>",
	Short: "Compute upstream D8 flow-path length to each drainage point",
	Args:  cobra.ExactArgs(3),
	RunE:  runFlowLength,
}

func init() {
	rootCmd.AddCommand(flowLengthCmd)
	flowLengthCmd.Flags().Int("snap-radius", 0, "snap each drainage point to the highest-FAC cell within this many cells")
	flowLengthCmd.Flags().String("fac", "", "flow-accumulation raster, required when --snap-radius > 0")
	flowLengthCmd.Flags().String("vector", "", "optional GeoPackage path to also write the longest-flow-path polylines")

	if err := viper.BindPFlag("flow_length.snap_radius", flowLengthCmd.Flags().Lookup("snap-radius")); err != nil {
		panic(fmt.Sprintf("failed to bind flag snap-radius: %v", err))
	}
}

func runFlowLength(cmd *cobra.Command, args []string) error {
	fdrPath, pointsPath, outputPath := args[0], args[1], args[2]
	facPath, _ := cmd.Flags().GetString("fac")
	vectorPath, _ := cmd.Flags().GetString("vector")

	cfg := hydro.ConfigFromViper(viper.GetViper(), "flow_length")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return err
	}
	points, _, err := loadDrainagePoints(pointsPath, fdr)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := hydro.RunFlowLength(context.Background(), fdrPath, points, cfg, facPath, cliProgress("flow_length"))
	if err != nil {
		return err
	}
	fmt.Printf("flow_length complete in %s: %d longest paths\n", elapsedSince(start), len(result.LongestPath))

	out, err := raster.CreateFileRaster(outputPath, result.Rows, result.Columns, fdr.GeoTransform(), fdr.NoData(), fdr.SRS())
	if err != nil {
		return err
	}
	if err := out.WriteBlock(0, 0, result.Rows, result.Columns, result.Values); err != nil {
		return err
	}
	if err := out.Save(); err != nil {
		return err
	}

	if vectorPath == "" {
		return nil
	}
	gpkg, err := vector.NewGpkgWriter(vectorPath, fdr.SRS())
	if err != nil {
		return err
	}
	defer gpkg.Close()
	if err := gpkg.WriteLayer("longest_flow_path", "LINESTRING", vector.LongestFlowPathFeatureCollection(result)); err != nil {
		return err
	}
	fmt.Printf("flow_length vector sidecar written: %s\n", vectorPath)
	return nil
}
