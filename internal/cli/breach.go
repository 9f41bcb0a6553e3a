package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var breachCmd = &cobra.Command{
	Use:   "breach <input> <output>",
	Short: "Remove depressions by least-cost channel breaching",
	Args:  cobra.ExactArgs(2),
	RunE:  runBreach,
}

func init() {
	rootCmd.AddCommand(breachCmd)
	breachCmd.Flags().Int("search-radius", hydro.DefaultConfig().SearchRadius, "breach search window radius, in cells")
	breachCmd.Flags().Float64("max-cost", hydro.DefaultConfig().MaxCost, "maximum breach channel cost before a pit is left unresolved")

	bind := map[string]string{
		"breach.search_radius": "search-radius",
		"breach.max_cost":      "max-cost",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, breachCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func runBreach(cmd *cobra.Command, args []string) error {
	cfg := hydro.ConfigFromViper(viper.GetViper(), "breach")
	cfg.ChunkSize = viper.GetInt("chunk_size")

	start := time.Now()
	if err := hydro.RunBreach(context.Background(), args[0], args[1], cfg, cliProgress("breach")); err != nil {
		return err
	}
	fmt.Printf("breach complete in %s: %s\n", elapsedSince(start), args[1])
	return nil
}
