// Package verify is the read-only integrity surface over a run directory:
// manifest schema validation, manifest-versus-ledger cross-check and full
// digest recomputation. It never writes into the run.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tickvault/internal/ledger"
	"tickvault/internal/manifest"
	"tickvault/internal/run"
)

// Report is one full verification pass over a run.
type Report struct {
	RunID       string `json:"run_id"`
	SchemaOK    bool   `json:"schema_ok"`
	SchemaError string `json:"schema_error,omitempty"`

	// LedgerMissing is set when the run has no checksum ledger at all. That
	// is only acceptable for a run with zero registered artifacts.
	LedgerMissing bool `json:"ledger_missing,omitempty"`

	// Unledgered lists registered artifacts that exist on disk but have no
	// ledger entry: files inside the provenance contract that nothing ever
	// hashed.
	Unledgered []string `json:"unledgered,omitempty"`

	Ledger *ledger.Report `json:"ledger,omitempty"`
	OK     bool           `json:"ok"`
}

// Run verifies one run directory: (1) the manifest must satisfy the embedded
// schema, (2) every registered artifact present on disk must be ledgered,
// (3) every ledger digest must recompute to the recorded value.
func Run(ctx context.Context, d *run.Dir) (*Report, error) {
	raw, err := os.ReadFile(d.ManifestPath())
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	rep := &Report{RunID: d.ID(), SchemaOK: true}
	if err := manifest.ValidateBytes(raw); err != nil {
		rep.SchemaOK = false
		rep.SchemaError = err.Error()
	}
	m, err := d.LoadManifest()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	names := registeredNames(m)

	entries, err := ledger.Parse(d.LedgerPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		rep.LedgerMissing = true
	case err != nil:
		return nil, fmt.Errorf("verify: %w", err)
	default:
		ledgered := make(map[string]bool, len(entries))
		for _, e := range entries {
			ledgered[e.Path] = true
		}
		for _, name := range names {
			if ledgered[name] {
				continue
			}
			if _, err := os.Stat(d.Join(name)); err == nil {
				rep.Unledgered = append(rep.Unledgered, name)
			}
		}
		lrep, err := ledger.Verify(ctx, d.LedgerPath())
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		rep.Ledger = lrep
	}

	rep.OK = rep.SchemaOK && len(rep.Unledgered) == 0
	if rep.LedgerMissing {
		rep.OK = rep.OK && len(names) == 0
	} else if rep.Ledger != nil {
		rep.OK = rep.OK && rep.Ledger.OK
	}
	return rep, nil
}

func registeredNames(m *manifest.Manifest) []string {
	var names []string
	names = append(names, m.Artifacts.Data...)
	names = append(names, m.Artifacts.Figures...)
	names = append(names, m.Artifacts.Logs...)
	names = append(names, m.Artifacts.Tables...)
	return names
}
