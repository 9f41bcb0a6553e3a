// Pipeline wraps the seven stage kernels behind the file-path entry points
// spec.md §6 names. The stages themselves only know about raster.Tiled/
// raster.Writer; this file is the thin seam that opens/creates files on
// disk (through raster.FileRaster) and hands the resulting values to the
// stage functions, so a caller that only has paths — the CLI, a script —
// can run "breach -> fill -> flow_direction -> accumulation ->
// {streams, basins, flow_length}" purely by chaining output paths into the
// next stage's input path, per spec.md §2 ("composition is by file-path
// hand-off").
package hydro

import (
	"context"

	"github.com/jblindsay/hydroflow/raster"
)

// RunBreach implements the breach(input, output, chunk_size, search_radius,
// max_cost, progress?) entry point.
func RunBreach(ctx context.Context, inputPath, outputPath string, cfg Config, progress raster.Progress) error {
	in, err := raster.OpenFileRaster(inputPath)
	if err != nil {
		return err
	}
	out, err := raster.CreateFileRaster(outputPath, in.Rows(), in.Columns(), in.GeoTransform(), in.NoData(), in.SRS())
	if err != nil {
		return err
	}
	if err := Breach(ctx, in, out, BreachParams{
		ChunkSize:    cfg.ChunkSize,
		SearchRadius: cfg.SearchRadius,
		MaxCost:      cfg.MaxCost,
		Progress:     progress,
	}); err != nil {
		return err
	}
	return out.Save()
}

// RunFill implements the fill(input, output, chunk_size, working_dir?,
// fill_holes, progress?) entry point. working_dir is accepted for interface
// symmetry with spec.md §6; this in-process implementation keeps its
// scratch state (the labels raster) in memory rather than spilling it to
// working_dir, since MemRaster already holds the whole raster.
func RunFill(ctx context.Context, inputPath, outputPath string, cfg Config, progress raster.Progress) error {
	in, err := raster.OpenFileRaster(inputPath)
	if err != nil {
		return err
	}
	out, err := raster.CreateFileRaster(outputPath, in.Rows(), in.Columns(), in.GeoTransform(), in.NoData(), in.SRS())
	if err != nil {
		return err
	}
	if err := Fill(ctx, in, out, FillParams{
		ChunkSize: cfg.ChunkSize,
		FillHoles: cfg.FillHoles,
		Progress:  progress,
	}); err != nil {
		return err
	}
	return out.Save()
}

// RunFlowDirection implements the flow_direction(input, output, chunk_size,
// working_dir?, resolve_flats, flat_chunk_cap, progress?) entry point.
func RunFlowDirection(ctx context.Context, inputPath, outputPath string, cfg Config, progress raster.Progress) error {
	in, err := raster.OpenFileRaster(inputPath)
	if err != nil {
		return err
	}
	out, err := raster.CreateFileRaster(outputPath, in.Rows(), in.Columns(), in.GeoTransform(), float64(DirNoData), in.SRS())
	if err != nil {
		return err
	}
	if err := FlowDirection(ctx, in, out, FlowDirParams{
		ChunkSize:    cfg.ChunkSize,
		ResolveFlats: cfg.ResolveFlats,
		FlatChunkCap: cfg.FlatChunkCap,
		Progress:     progress,
	}); err != nil {
		return err
	}
	return out.Save()
}

// RunAccumulation implements the accumulation(input, output, chunk_size,
// progress?) entry point.
func RunAccumulation(ctx context.Context, fdrPath, outputPath string, cfg Config, progress raster.Progress) error {
	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return err
	}
	out, err := raster.CreateFileRaster(outputPath, fdr.Rows(), fdr.Columns(), fdr.GeoTransform(), fdr.NoData(), fdr.SRS())
	if err != nil {
		return err
	}
	if err := Accumulation(ctx, fdr, out, AccumulationParams{
		ChunkSize: cfg.ChunkSize,
		Progress:  progress,
	}); err != nil {
		return err
	}
	return out.Save()
}

// RunBasins implements the basins(fdr, drainage_points, output, chunk_size,
// all_basins, fac?, snap_radius, layer?, progress?) entry point. There is no
// layer parameter; the raster is labelled one chunk_size tile at a time
// (§4.7).
func RunBasins(ctx context.Context, fdrPath string, points []DrainagePoint, outputPath string, cfg Config, facPath string, progress raster.Progress) error {
	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return err
	}
	out, err := raster.CreateFileRaster(outputPath, fdr.Rows(), fdr.Columns(), fdr.GeoTransform(), 0, fdr.SRS())
	if err != nil {
		return err
	}
	var fac raster.Tiled
	if facPath != "" {
		fac, err = raster.OpenFileRaster(facPath)
		if err != nil {
			return err
		}
	}
	if err := Basins(ctx, fdr, points, out, BasinsParams{
		ChunkSize:  cfg.ChunkSize,
		AllBasins:  cfg.AllBasins,
		SnapRadius: cfg.SnapRadius,
		FAC:        fac,
		Progress:   progress,
	}); err != nil {
		return err
	}
	return out.Save()
}

// RunStreams implements the streams(fac, fdr, output_dir, threshold,
// chunk_size, progress?) entry point, returning the extracted network for
// the caller to serialize (raster + vector sidecars) however its output_dir
// convention requires.
func RunStreams(ctx context.Context, facPath, fdrPath string, cfg Config, progress raster.Progress) (*StreamNetwork, error) {
	fac, err := raster.OpenFileRaster(facPath)
	if err != nil {
		return nil, err
	}
	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return nil, err
	}
	return Streams(ctx, fac, fdr, StreamsParams{
		ChunkSize: cfg.ChunkSize,
		Threshold: cfg.Threshold,
		Progress:  progress,
	})
}

// RunFlowLength implements the flow_length(fdr, drainage_points,
// output_raster, output_vector?, fac?, snap_radius, layer?) entry point.
func RunFlowLength(ctx context.Context, fdrPath string, points []DrainagePoint, cfg Config, facPath string, progress raster.Progress) (*FlowLengthResult, error) {
	fdr, err := raster.OpenFileRaster(fdrPath)
	if err != nil {
		return nil, err
	}
	var fac raster.Tiled
	if facPath != "" {
		fac, err = raster.OpenFileRaster(facPath)
		if err != nil {
			return nil, err
		}
	}
	return FlowLength(ctx, fdr, points, FlowLengthParams{
		SnapRadius: cfg.SnapRadius,
		FAC:        fac,
		Progress:   progress,
	})
}
