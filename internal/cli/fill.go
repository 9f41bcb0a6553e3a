package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var fillCmd = &cobra.Command{
	Use:   "fill <input> <output>",
	Short: "Fill remaining depressions with a tiled priority-flood pass",
	Args:  cobra.ExactArgs(2),
	RunE:  runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)
	fillCmd.Flags().Bool("fill-holes", false, "also fill interior NoData holes")
	fillCmd.Flags().String("working-dir", "", "scratch directory for large runs (accepted for interface symmetry)")

	bind := map[string]string{
		"fill.fill_holes":  "fill-holes",
		"fill.working_dir": "working-dir",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, fillCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func runFill(cmd *cobra.Command, args []string) error {
	cfg := hydro.ConfigFromViper(viper.GetViper(), "fill")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	start := time.Now()
	if err := hydro.RunFill(context.Background(), args[0], args[1], cfg, cliProgress("fill")); err != nil {
		return err
	}
	fmt.Printf("fill complete in %s: %s\n", elapsedSince(start), args[1])
	return nil
}
