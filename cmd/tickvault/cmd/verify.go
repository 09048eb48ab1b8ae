package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tickvault/internal/ledger"
	"tickvault/internal/logger"
	"tickvault/internal/run"
	"tickvault/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a run's manifest schema and checksum ledger",
	Long: `Verify validates the run manifest against the embedded JSON Schema,
cross-checks that every registered artifact on disk is ledgered, and
recomputes every ledger digest. Any violation exits non-zero.

With --watch the run directory is re-verified on every filesystem change
until interrupted. Watching is read-only and advisory.`,
	RunE: runVerify,
}

var (
	verifyRunID string
	verifyWatch bool
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyRunID, "run", "", "run identity to verify (required)")
	verifyCmd.Flags().BoolVar(&verifyWatch, "watch", false, "keep watching the run directory and re-verify on changes")
	verifyCmd.MarkFlagRequired("run")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	d, err := run.Open(cfg.Runs.Root, verifyRunID)
	if err != nil {
		return err
	}

	if verifyWatch {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		fmt.Printf("watching run %s (interrupt to stop)\n", d.ID())
		return verify.Watch(ctx, d, func(rep *verify.Report) {
			if rep.OK {
				logger.Infof("run %s verified clean", rep.RunID)
				return
			}
			logger.Warnf("run %s drift: %s", rep.RunID, issueSummary(rep))
		})
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	rep, err := verify.Run(ctx, d)
	if err != nil {
		return err
	}
	printReport(rep)
	if !rep.OK {
		return fmt.Errorf("run %s failed verification: %s", rep.RunID, issueSummary(rep))
	}
	return nil
}

func printReport(rep *verify.Report) {
	fmt.Printf("run %s\n", rep.RunID)
	if rep.SchemaOK {
		fmt.Println("  schema: ok")
	} else {
		fmt.Printf("  schema: %s\n", rep.SchemaError)
	}
	switch {
	case rep.LedgerMissing:
		fmt.Println("  ledger: none")
	case rep.Ledger != nil:
		var ok, mismatch, missing int
		for _, res := range rep.Ledger.Results {
			switch res.State {
			case ledger.StateOK:
				ok++
			case ledger.StateMismatch:
				mismatch++
			case ledger.StateMissing:
				missing++
			}
		}
		fmt.Printf("  ledger: %d files, %d ok, %d mismatch, %d missing\n",
			len(rep.Ledger.Results), ok, mismatch, missing)
		for _, res := range rep.Ledger.Results {
			if res.State != ledger.StateOK {
				fmt.Printf("    %-8s %s\n", res.State, res.Path)
			}
		}
	}
	for _, name := range rep.Unledgered {
		fmt.Printf("  unledgered: %s\n", name)
	}
	if rep.OK {
		fmt.Println("verification passed")
	} else {
		fmt.Println("verification failed")
	}
}

// issueSummary condenses a failing report into one line for logs and errors.
func issueSummary(rep *verify.Report) string {
	var parts []string
	if !rep.SchemaOK {
		parts = append(parts, "schema violation")
	}
	if rep.LedgerMissing {
		parts = append(parts, "ledger missing")
	}
	if rep.Ledger != nil {
		var mismatch, missing int
		for _, res := range rep.Ledger.Results {
			switch res.State {
			case ledger.StateMismatch:
				mismatch++
			case ledger.StateMissing:
				missing++
			}
		}
		if mismatch > 0 {
			parts = append(parts, fmt.Sprintf("%d mismatched", mismatch))
		}
		if missing > 0 {
			parts = append(parts, fmt.Sprintf("%d missing", missing))
		}
	}
	if n := len(rep.Unledgered); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unledgered", n))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
