package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickvault/internal/catalog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Index and list runs through the catalog",
}

var runsIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rescan the runs root into the catalog database",
	RunE:  runRunsIndex,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed runs, newest first",
	RunE:  runRunsList,
}

var (
	runsListSource string
	runsListSymbol string
	runsListLimit  int
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsIndexCmd)
	runsCmd.AddCommand(runsListCmd)

	runsListCmd.Flags().StringVar(&runsListSource, "source", "", "filter by market data source")
	runsListCmd.Flags().StringVar(&runsListSymbol, "symbol", "", "filter by symbol")
	runsListCmd.Flags().IntVar(&runsListLimit, "limit", 50, "maximum rows to print")
}

func runRunsIndex(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	store, err := catalog.Open(cfg.Runs.Root)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Index(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d runs under %s\n", n, cfg.Runs.Root)
	return nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	store, err := catalog.Open(cfg.Runs.Root)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), catalog.Filter{
		Source: runsListSource,
		Symbol: runsListSymbol,
		Limit:  runsListLimit,
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs indexed; try `tickvault runs index` first")
		return nil
	}

	fmt.Printf("%-17s %-21s %-9s %-11s %-4s %9s %9s\n",
		"RUN", "CREATED", "SOURCE", "SYMBOL", "TF", "BARS", "TRADES")
	for _, r := range runs {
		fmt.Printf("%-17s %-21s %-9s %-11s %-4s %9d %9d\n",
			r.RunID, r.CreatedUTC, r.Source, r.Symbol, r.Timeframe, r.OHLCVRows, r.TradesRows)
	}
	return nil
}
