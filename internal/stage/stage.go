// Package stage implements the registration cycle every producing stage
// follows: load the manifest, do the work, register new artifacts, record the
// stage's parameters, persist the manifest, then regenerate the checksum
// ledger over the complete current inventory. The manifest is persisted
// before the ledger is computed because the ledger hashes the manifest file
// itself.
package stage

import (
	"fmt"
	"os"

	"tickvault/internal/ledger"
	"tickvault/internal/manifest"
	"tickvault/internal/run"
)

// Result is what a stage hands back for registration: the run-relative names
// of the files it produced, plus the configuration it actually used (stored
// under the stage's own parameters key; nil leaves parameters untouched).
type Result struct {
	Data    []string
	Figures []string
	Logs    []string
	Tables  []string
	Params  any
}

// Finalize runs steps 3-6 of the registration cycle against an existing run.
// Registration is idempotent: names already present in an artifact list are
// skipped, so re-running a stage does not duplicate entries.
func Finalize(d *run.Dir, name string, res Result) error {
	m, err := d.LoadManifest()
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	for _, f := range res.Data {
		m.AddData(f)
	}
	for _, f := range res.Figures {
		m.AddFigure(f)
	}
	for _, f := range res.Logs {
		m.AddLog(f)
	}
	for _, f := range res.Tables {
		m.AddTable(f)
	}
	if res.Params != nil {
		if err := m.SetParams(name, res.Params); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}
	if err := m.Persist(d.ManifestPath()); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if _, err := Rehash(d, m); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}

// Rehash regenerates the checksum ledger from scratch over the manifest file
// and everything the manifest currently references. A registered data, figure
// or table file that is missing on disk is a fatal inconsistency; logs that do
// not exist yet are tolerated (a stage may register its log list before every
// stage has run).
func Rehash(d *run.Dir, m *manifest.Manifest) (map[string]string, error) {
	paths := []string{d.ManifestPath()}
	for _, name := range m.Artifacts.Data {
		path := d.Join(name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("registered data artifact missing: %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	for _, name := range m.Artifacts.Figures {
		path := d.Join(name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("registered figure missing: %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	for _, name := range m.Artifacts.Logs {
		path := d.Join(name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		paths = append(paths, path)
	}
	for _, name := range m.Artifacts.Tables {
		path := d.Join(name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("registered table missing: %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return ledger.Write(paths, d.LedgerPath())
}
