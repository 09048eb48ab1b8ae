package stage

import (
	"bytes"
	"context"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickvault/internal/ledger"
	"tickvault/internal/run"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newRun(t *testing.T) *run.Dir {
	t.Helper()
	d, err := run.Create(t.TempDir(), nil)
	require.NoError(t, err)
	return d
}

func writeArtifact(t *testing.T, d *run.Dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(d.Join(name), bytes.Repeat([]byte("x"), size), 0o644))
}

func TestEndToEndRegistration(t *testing.T) {
	d := newRun(t)
	writeArtifact(t, d, "ohlcv_x.parquet", 100)
	writeArtifact(t, d, "x.log", 20)

	err := Finalize(d, "x", Result{
		Data: []string{"ohlcv_x.parquet"},
		Logs: []string{"x.log"},
	})
	require.NoError(t, err)

	m, err := d.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{"ohlcv_x.parquet"}, m.Artifacts.Data)
	assert.Equal(t, []string{"x.log"}, m.Artifacts.Logs)

	entries, err := ledger.Parse(d.LedgerPath())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	paths := make(map[string]bool, 3)
	for _, e := range entries {
		paths[e.Path] = true
		assert.Regexp(t, hexDigest, e.Digest)
	}
	assert.True(t, paths["manifest.json"])
	assert.True(t, paths["ohlcv_x.parquet"])
	assert.True(t, paths["x.log"])

	report, err := ledger.Verify(context.Background(), d.LedgerPath())
	require.NoError(t, err)
	assert.True(t, report.OK)
}

func TestFinalizeIdempotent(t *testing.T) {
	d := newRun(t)
	writeArtifact(t, d, "ohlcv_x.parquet", 10)

	res := Result{Data: []string{"ohlcv_x.parquet"}, Params: map[string]any{"rows": 1}}
	require.NoError(t, Finalize(d, "collect_data", res))
	require.NoError(t, Finalize(d, "collect_data", res))

	m, err := d.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{"ohlcv_x.parquet"}, m.Artifacts.Data)

	entries, err := ledger.Parse(d.LedgerPath())
	require.NoError(t, err)
	assert.Len(t, entries, 2) // manifest + data file, no duplicates
}

func TestFinalizeSetsOnlyOwnParams(t *testing.T) {
	d := newRun(t)
	require.NoError(t, Finalize(d, "collect_data", Result{Params: map[string]any{"days": 30}}))
	require.NoError(t, Finalize(d, "data_summary", Result{Params: map[string]any{"rows": 12}}))

	m, err := d.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{"collect_data", "data_summary"}, m.Parameters.Keys())
}

func TestRehashFailsOnMissingData(t *testing.T) {
	d := newRun(t)
	err := Finalize(d, "x", Result{Data: []string{"ghost.parquet"}})
	assert.Error(t, err)
}

func TestRehashSkipsMissingLogs(t *testing.T) {
	d := newRun(t)
	writeArtifact(t, d, "present.log", 5)

	err := Finalize(d, "x", Result{Logs: []string{"present.log", "future.log"}})
	require.NoError(t, err)

	m, err := d.LoadManifest()
	require.NoError(t, err)
	// both names registered, only the existing one hashed
	assert.Equal(t, []string{"present.log", "future.log"}, m.Artifacts.Logs)

	entries, err := ledger.Parse(d.LedgerPath())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "manifest.json", entries[0].Path)
	assert.Equal(t, "present.log", entries[1].Path)
}

func TestLedgerRegeneratedNotPatched(t *testing.T) {
	d := newRun(t)
	writeArtifact(t, d, "a.parquet", 8)
	require.NoError(t, Finalize(d, "x", Result{Data: []string{"a.parquet"}}))

	before, err := ledger.Parse(d.LedgerPath())
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(d.Join("tables"), 0o755))
	writeArtifact(t, d, "tables/data_summary.md", 16)
	require.NoError(t, Finalize(d, "y", Result{Tables: []string{"tables/data_summary.md"}}))

	after, err := ledger.Parse(d.LedgerPath())
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	report, err := ledger.Verify(context.Background(), d.LedgerPath())
	require.NoError(t, err)
	assert.True(t, report.OK)
}
