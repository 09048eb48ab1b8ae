package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tickvault/internal/manifest"
	"tickvault/internal/run"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new run directory with a seeded manifest",
	Long: `Init creates a run directory under the configured runs root. The run
identity is the current UTC instant at second resolution; creating two runs
within the same second fails rather than merging. The seeded manifest records
the code version, the environment fingerprint and the initial parameters.`,
	RunE: runInit,
}

var (
	initNote       string
	initParamsPath string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initNote, "note", "", "human-readable note recorded under parameters")
	initCmd.Flags().StringVar(&initParamsPath, "params", "", "YAML file of initial manifest parameters")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	params := manifest.NewParams()
	if initParamsPath != "" {
		if err := seedParams(params, initParamsPath); err != nil {
			return err
		}
	}
	if initNote != "" {
		if err := params.Set("note", initNote); err != nil {
			return fmt.Errorf("record note: %w", err)
		}
	}

	d, err := run.Create(cfg.Runs.Root, params)
	if err != nil {
		return err
	}

	m, err := d.LoadManifest()
	if err != nil {
		return err
	}
	m.Notes = "Run initialized. Artifacts are registered and checksummed as stages execute."
	if err := m.Persist(d.ManifestPath()); err != nil {
		return err
	}

	fmt.Printf("run %s initialized\n", d.ID())
	fmt.Printf("manifest: %s\n", d.ManifestPath())
	return nil
}

// seedParams merges the top-level keys of a YAML document into the parameter
// blob. Values survive as-is; stages later claim their own keys.
func seedParams(params *manifest.Params, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read params file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse params file %s: %w", path, err)
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := params.Set(k, doc[k]); err != nil {
			return fmt.Errorf("params key %s: %w", k, err)
		}
	}
	return nil
}
