package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"tickvault/internal/run"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the code version stamped into run manifests",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tickvault %s (%s)\n", run.CodeVersion(), runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
