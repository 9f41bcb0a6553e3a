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

var basinsCmd = &cobra.Command{
	Use:   "basins <fdr> <drainage-points.geojson> <output>",
	Short: "Label watersheds draining to a set of drainage points",
	Args:  cobra.ExactArgs(3),
	RunE:  runBasins,
}

func init() {
	rootCmd.AddCommand(basinsCmd)
	basinsCmd.Flags().Bool("all-basins", false, "skip the filter to input drainage-point IDs; every label already comes from an input point, so cells reaching no drainage point stay 0")
	basinsCmd.Flags().Int("snap-radius", 0, "snap each drainage point to the highest-FAC cell within this many cells")
	basinsCmd.Flags().String("fac", "", "flow-accumulation raster, required when --snap-radius > 0")
	basinsCmd.Flags().String("vector", "", "optional GeoPackage path to also write a basins.gpkg-shaped drainage-point layer")

	bind := map[string]string{
		"basins.all_basins":  "all-basins",
		"basins.snap_radius": "snap-radius",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, basinsCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func runBasins(cmd *cobra.Command, args []string) error {
	fdrPath, pointsPath, outputPath := args[0], args[1], args[2]
	facPath, _ := cmd.Flags().GetString("fac")
	vectorPath, _ := cmd.Flags().GetString("vector")

	cfg := hydro.ConfigFromViper(viper.GetViper(), "basins")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return err
	}
	points, features, err := loadDrainagePoints(pointsPath, fdr)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := hydro.RunBasins(context.Background(), fdrPath, points, outputPath, cfg, facPath, cliProgress("basins")); err != nil {
		return err
	}
	fmt.Printf("basins complete in %s: %s\n", elapsedSince(start), outputPath)

	if vectorPath == "" {
		return nil
	}
	out, err := raster.OpenFileRaster(outputPath)
	if err != nil {
		return err
	}
	dsBasinID := downstreamBasinIDs(fdr, out, points)
	fc := vector.BasinFeatureCollection(features, dsBasinID)
	gpkg, err := vector.NewGpkgWriter(vectorPath, fdr.SRS())
	if err != nil {
		return err
	}
	defer gpkg.Close()
	if err := gpkg.WriteLayer("drainage_points", "POINT", fc); err != nil {
		return err
	}
	fmt.Printf("basins vector sidecar written: %s\n", vectorPath)
	return nil
}

// downstreamBasinIDs traces each drainage point one step downstream along fdr
// and follows the D8 chain until it finds a cell belonging to a different
// basin (or leaves the raster / hits an undefined cell), reporting that
// basin's ID, or 0 if the point's basin never reaches another one.
func downstreamBasinIDs(fdr, basins raster.Tiled, points []hydro.DrainagePoint) map[int64]int64 {
	rows, cols := fdr.Rows(), fdr.Columns()
	out := make(map[int64]int64, len(points))
	for _, pt := range points {
		out[pt.ID] = traceDownstreamBasin(fdr, basins, rows, cols, pt)
	}
	return out
}

func traceDownstreamBasin(fdr, basins raster.Tiled, rows, cols int, pt hydro.DrainagePoint) int64 {
	r, c := pt.Row, pt.Col
	for i := 0; i < rows+cols; i++ {
		dirBuf := make([]float64, 1)
		if err := fdr.ReadBlock(r, c, 1, 1, dirBuf); err != nil {
			return 0
		}
		dir := byte(dirBuf[0])
		if !hydro.IsValidFlowDir(dir) {
			return 0
		}
		dr, dc := hydro.Offset(dir)
		r, c = r+dr, c+dc
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return 0
		}
		idBuf := make([]float64, 1)
		if err := basins.ReadBlock(r, c, 1, 1, idBuf); err != nil {
			return 0
		}
		id := int64(idBuf[0])
		if id != 0 && id != pt.ID {
			return id
		}
	}
	return 0
}
