package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "app:\n  log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Empty(t, cfg.App.LogFile)
	assert.Equal(t, "runs", cfg.Runs.Root)
	assert.Equal(t, "binance", cfg.Source.Name)
	assert.Equal(t, "https://api.binance.com", cfg.Source.Binance.BaseURL)
	assert.Equal(t, 15, cfg.Source.Binance.TimeoutS)
	assert.Equal(t, 300, cfg.Source.Binance.RateLimitPerMin)
	assert.Equal(t, "BTC/USDT", cfg.Collect.Symbol)
	assert.Equal(t, "1m", cfg.Collect.Timeframe)
	assert.Equal(t, 90, cfg.Collect.Days)
	assert.Equal(t, 1000, cfg.Collect.PageSize)
	assert.InDelta(t, 0.2, cfg.Collect.SleepS, 1e-9)
	assert.False(t, cfg.Collect.Trades.Enabled)
	assert.Equal(t, 60, cfg.Collect.Trades.WindowMinutes)
	assert.Equal(t, 200_000, cfg.Collect.Trades.MaxRows)
	assert.Equal(t, int64(60_000), cfg.Summary.IntensityBucketMS)
	assert.Equal(t, "png", cfg.Figures.Format)
	assert.Equal(t, []int{30, 120}, cfg.Figures.VolWindows)
	assert.Equal(t, ":8870", cfg.Server.Listen)
}

func TestLoadOverrides(t *testing.T) {
	body := `
runs:
  root: /data/runs
collect:
  symbol: ETH/USDT
  timeframe: 5m
  days: 7
  trades:
    enabled: true
    window_minutes: 30
figures:
  format: html
  vol_windows: [10, 20]
`
	path := writeConfig(t, t.TempDir(), "config.yaml", body)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/runs", cfg.Runs.Root)
	assert.Equal(t, "ETH/USDT", cfg.Collect.Symbol)
	assert.Equal(t, "5m", cfg.Collect.Timeframe)
	assert.Equal(t, 7, cfg.Collect.Days)
	assert.True(t, cfg.Collect.Trades.Enabled)
	assert.Equal(t, 30, cfg.Collect.Trades.WindowMinutes)
	assert.Equal(t, 200_000, cfg.Collect.Trades.MaxRows) // default fills the gap
	assert.Equal(t, "html", cfg.Figures.Format)
	assert.Equal(t, []int{10, 20}, cfg.Figures.VolWindows)
}

// An explicit zero must survive defaulting; only omitted keys get defaults.
func TestLoadExplicitZeroSurvives(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "collect:\n  sleep_s: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Collect.SleepS)
}

func TestLoadIncludeMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", "collect:\n  symbol: ETH/USDT\n  days: 7\n")
	path := writeConfig(t, dir, "config.yaml", "include:\n  - base.yaml\ncollect:\n  days: 3\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ETH/USDT", cfg.Collect.Symbol)
	assert.Equal(t, 3, cfg.Collect.Days) // including file wins
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: [b.yaml]\n")
	path := writeConfig(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		body    string
		wantErr string
	}{
		{"source:\n  name: kraken\n", "unsupported source.name"},
		{"collect:\n  timeframe: 7x\n", "unsupported timeframe"},
		{"collect:\n  page_size: 5000\n", "collect.page_size"},
		{"figures:\n  format: svg\n", "figures.format"},
		{"figures:\n  vol_windows: [1]\n", "vol_windows"},
		{"source:\n  binance:\n    proxy:\n      enabled: true\n", "proxy enabled but url is empty"},
	}
	for _, tc := range cases {
		path := writeConfig(t, t.TempDir(), "config.yaml", tc.body)
		_, err := Load(path)
		require.Error(t, err, tc.body)
		assert.Contains(t, err.Error(), tc.wantErr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
