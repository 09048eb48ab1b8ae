package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickvault/internal/figures"
	"tickvault/internal/run"
)

var figuresCmd = &cobra.Command{
	Use:   "figures",
	Short: "Render the standard EDA chart set for a run",
	Long: `Figures reads the run's registered datasets and renders the standard
exploratory chart set under figures/. PNG output needs a headless Chrome;
without one the charts fall back to standalone HTML.`,
	RunE: runFigures,
}

var figuresRunID string

func init() {
	rootCmd.AddCommand(figuresCmd)

	figuresCmd.Flags().StringVar(&figuresRunID, "run", "", "run identity to render figures for (required)")
	figuresCmd.MarkFlagRequired("run")
}

func runFigures(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	d, err := run.Open(cfg.Runs.Root, figuresRunID)
	if err != nil {
		return err
	}
	opts := figures.Options{
		Format:     figures.Format(cfg.Figures.Format),
		VolWindows: cfg.Figures.VolWindows,
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := figures.Run(ctx, d, opts); err != nil {
		return err
	}
	fmt.Printf("figures rendered for run %s\n", d.ID())
	return nil
}
