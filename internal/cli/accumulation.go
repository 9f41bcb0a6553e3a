package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var accumulationCmd = &cobra.Command{
	Use:   "accumulation <fdr> <output>",
	Short: "Compute flow accumulation from a flow-direction raster",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccumulation,
}

func init() {
	rootCmd.AddCommand(accumulationCmd)
}

func runAccumulation(cmd *cobra.Command, args []string) error {
	cfg := hydro.ConfigFromViper(viper.GetViper(), "accumulation")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	start := time.Now()
	if err := hydro.RunAccumulation(context.Background(), args[0], args[1], cfg, cliProgress("accumulation")); err != nil {
		return err
	}
	fmt.Printf("accumulation complete in %s: %s\n", elapsedSince(start), args[1])
	return nil
}
