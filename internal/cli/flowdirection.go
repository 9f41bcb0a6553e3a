package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var flowDirectionCmd = &cobra.Command{
	Use:   "flow_direction <input> <output>",
	Short: "Compute D8 flow direction, resolving flats by default",
	Args:  cobra.ExactArgs(2),
	RunE:  runFlowDirection,
}

func init() {
	rootCmd.AddCommand(flowDirectionCmd)
	flowDirectionCmd.Flags().Bool("resolve-flats", true, "resolve flat regions into a consistent downhill gradient")
	flowDirectionCmd.Flags().Int("flat-chunk-cap", hydro.DefaultConfig().FlatChunkCap, "cap on cells collected into one flat region (see hydro.FlowDirParams.FlatChunkCap for larger flats)")

	bind := map[string]string{
		"flow_direction.resolve_flats":  "resolve-flats",
		"flow_direction.flat_chunk_cap": "flat-chunk-cap",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flowDirectionCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func runFlowDirection(cmd *cobra.Command, args []string) error {
	cfg := hydro.ConfigFromViper(viper.GetViper(), "flow_direction")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	start := time.Now()
	if err := hydro.RunFlowDirection(context.Background(), args[0], args[1], cfg, cliProgress("flow_direction")); err != nil {
		return err
	}
	fmt.Printf("flow_direction complete in %s: %s\n", elapsedSince(start), args[1])
	return nil
}
