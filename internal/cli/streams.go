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

var streamsCmd = &cobra.Command{
	Use:   "streams <fac> <fdr> <output-dir>",
	Short: "Extract a stream network from flow accumulation and direction",
	Args:  cobra.ExactArgs(3),
	RunE:  runStreams,
}

func init() {
	rootCmd.AddCommand(streamsCmd)
	streamsCmd.Flags().Int64("threshold", hydro.DefaultConfig().Threshold, "minimum flow accumulation to be considered a stream cell")

	if err := viper.BindPFlag("streams.threshold", streamsCmd.Flags().Lookup("threshold")); err != nil {
		panic(fmt.Sprintf("failed to bind flag threshold: %v", err))
	}
}

func runStreams(cmd *cobra.Command, args []string) error {
	facPath, fdrPath, outputDir := args[0], args[1], args[2]

	cfg := hydro.ConfigFromViper(viper.GetViper(), "streams")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return err
	}

	start := time.Now()
	net, err := hydro.RunStreams(context.Background(), facPath, fdrPath, cfg, cliProgress("streams"))
	if err != nil {
		return err
	}
	fmt.Printf("streams complete in %s: %d lines, %d junctions\n", elapsedSince(start), len(net.Lines), len(net.Junctions))

	maskOut, err := raster.CreateFileRaster(outputDir+"/streams_mask", net.Rows, net.Columns, fdr.GeoTransform(), 0, fdr.SRS())
	if err != nil {
		return err
	}
	buf := make([]float64, len(net.Mask))
	for i, v := range net.Mask {
		if v {
			buf[i] = 1
		}
	}
	if err := maskOut.WriteBlock(0, 0, net.Rows, net.Columns, buf); err != nil {
		return err
	}
	if err := maskOut.Save(); err != nil {
		return err
	}

	gpkg, err := vector.NewGpkgWriter(outputDir+"/streams.gpkg", fdr.SRS())
	if err != nil {
		return err
	}
	defer gpkg.Close()
	if err := gpkg.WriteLayer("streams", "LINESTRING", vector.StreamsFeatureCollection(net)); err != nil {
		return err
	}
	if err := gpkg.WriteLayer("junctions", "POINT", vector.JunctionsFeatureCollection(net)); err != nil {
		return err
	}
	fmt.Printf("streams vector sidecar written: %s/streams.gpkg\n", outputDir)
	return nil
}
