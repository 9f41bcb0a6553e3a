package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/jblindsay/hydroflow/raster"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run hydroflow stages interactively, prompting for each argument",
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// stageHelp maps each interactive command to the positional prompts it
// needs. Being a map, it gives 'help' no fixed listing order.
var stageHelp = map[string][]string{
	"breach":         {"input raster", "output raster"},
	"fill":           {"input raster", "output raster"},
	"flow_direction": {"input raster", "output raster"},
	"accumulation":   {"fdr raster", "output raster"},
	"basins":         {"fdr raster", "drainage points geojson", "output raster"},
	"streams":        {"fac raster", "fdr raster", "output directory"},
	"flow_length":    {"fdr raster", "drainage points geojson", "output raster"},
}

// runAsk is a REPL loop in the spirit of a command-line geoprocessing
// console: type a stage name, answer its prompts, see it run, repeat.
func runAsk(cmd *cobra.Command, args []string) error {
	fmt.Println("hydroflow interactive mode. Type 'help' for commands, 'exit' to quit.")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("hydroflow> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "help":
			printAskHelp()
			continue
		}
		prompts, ok := stageHelp[strings.ToLower(line)]
		if !ok {
			fmt.Fprintf(os.Stderr, "unrecognized command %q, type 'help' for a list\n", line)
			continue
		}
		answers := make([]string, len(prompts))
		for i, prompt := range prompts {
			fmt.Printf("  %s: ", prompt)
			answer, err := reader.ReadString('\n')
			if err != nil {
				return nil
			}
			answers[i] = strings.TrimSpace(answer)
		}
		if err := dispatchAsk(strings.ToLower(line), answers); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func printAskHelp() {
	fmt.Println("available stages:")
	for name := range stageHelp {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("exit — leave interactive mode")
}

// dispatchAsk runs one stage with the answers collected from the prompts in
// stageHelp, reusing the same hydro.Run* entry points the non-interactive
// subcommands call.
func dispatchAsk(stage string, a []string) error {
	ctx := context.Background()
	cfg := hydro.ConfigFromViper(viper.GetViper(), stage)
	cfg.ChunkSize = viper.GetInt("chunk_size")

	switch stage {
	case "breach":
		return hydro.RunBreach(ctx, a[0], a[1], cfg, cliProgress(stage))
	case "fill":
		return hydro.RunFill(ctx, a[0], a[1], cfg, cliProgress(stage))
	case "flow_direction":
		return hydro.RunFlowDirection(ctx, a[0], a[1], cfg, cliProgress(stage))
	case "accumulation":
		return hydro.RunAccumulation(ctx, a[0], a[1], cfg, cliProgress(stage))
	case "basins":
		fdr, err := raster.OpenFileRaster(a[0])
		if err != nil {
			return err
		}
		points, _, err := loadDrainagePoints(a[1], fdr)
		if err != nil {
			return err
		}
		return hydro.RunBasins(ctx, a[0], points, a[2], cfg, "", cliProgress(stage))
	case "streams":
		net, err := hydro.RunStreams(ctx, a[0], a[1], cfg, cliProgress(stage))
		if err != nil {
			return err
		}
		fmt.Printf("extracted %d stream lines, %d junctions\n", len(net.Lines), len(net.Junctions))
		return nil
	case "flow_length":
		fdr, err := raster.OpenFileRaster(a[0])
		if err != nil {
			return err
		}
		points, _, err := loadDrainagePoints(a[1], fdr)
		if err != nil {
			return err
		}
		result, err := hydro.RunFlowLength(ctx, a[0], points, cfg, "", cliProgress(stage))
		if err != nil {
			return err
		}
		out, err := raster.CreateFileRaster(a[2], result.Rows, result.Columns, fdr.GeoTransform(), fdr.NoData(), fdr.SRS())
		if err != nil {
			return err
		}
		if err := out.WriteBlock(0, 0, result.Rows, result.Columns, result.Values); err != nil {
			return err
		}
		return out.Save()
	default:
		return fmt.Errorf("unrecognized stage %q", stage)
	}
}
