package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tickvault/internal/collect"
	"tickvault/internal/gateway"
	"tickvault/internal/market"
	"tickvault/internal/run"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch OHLCV bars (and optionally trades) into a run",
	Long: `Collect pulls the configured symbol's OHLCV window from the market
data source, optionally a trailing window of trade ticks, writes both as
parquet artifacts into the run directory and registers them in the manifest
and the checksum ledger. A page failure aborts before anything is registered.`,
	RunE: runCollect,
}

var collectRunID string

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectRunID, "run", "", "run identity to collect into (required)")
	collectCmd.MarkFlagRequired("run")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	d, err := run.Open(cfg.Runs.Root, collectRunID)
	if err != nil {
		return err
	}
	src, err := gateway.NewSourceFromConfig(cfg)
	if err != nil {
		return err
	}
	tf, err := market.ParseTimeframe(cfg.Collect.Timeframe)
	if err != nil {
		return err
	}

	opts := collect.Options{
		Symbol:    cfg.Collect.Symbol,
		Timeframe: tf,
		Days:      cfg.Collect.Days,
		PageSize:  cfg.Collect.PageSize,
		Sleep:     time.Duration(cfg.Collect.SleepS * float64(time.Second)),
		Trades: collect.TradeOptions{
			Enabled:       cfg.Collect.Trades.Enabled,
			WindowMinutes: cfg.Collect.Trades.WindowMinutes,
			MaxRows:       cfg.Collect.Trades.MaxRows,
			PageSize:      cfg.Collect.Trades.PageSize,
		},
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := collect.Run(ctx, d, src, opts); err != nil {
		return err
	}
	fmt.Printf("collect finished for run %s\n", d.ID())
	return nil
}
