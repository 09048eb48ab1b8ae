package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickvault/internal/run"
	"tickvault/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Compute descriptive statistics tables for a run",
	Long: `Summarize reads the run's registered parquet datasets, computes the
OHLCV and trades summary tables, writes them as markdown, CSV and JSON under
tables/ and registers them in the manifest and the checksum ledger.`,
	RunE: runSummarize,
}

var summarizeRunID string

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringVar(&summarizeRunID, "run", "", "run identity to summarize (required)")
	summarizeCmd.MarkFlagRequired("run")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	d, err := run.Open(cfg.Runs.Root, summarizeRunID)
	if err != nil {
		return err
	}
	opts := summary.Options{IntensityBucketMS: cfg.Summary.IntensityBucketMS}
	if err := summary.Run(d, opts); err != nil {
		return err
	}
	fmt.Printf("summary tables written for run %s\n", d.ID())
	return nil
}
