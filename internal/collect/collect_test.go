package collect

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"tickvault/internal/dataset"
	"tickvault/internal/gateway/exchange"
	"tickvault/internal/ledger"
	"tickvault/internal/market"
	"tickvault/internal/run"
)

// genSource synthesizes one bar per timeframe step up to endMS and replays a
// fixed tick tape.
type genSource struct {
	endMS int64
	ticks []market.Tick
}

var _ exchange.Source = (*genSource)(nil)

func (g *genSource) Name() string { return "fakex" }

func (g *genSource) FetchOHLCVPage(_ context.Context, _ string, tf market.Timeframe, sinceMS int64, limit int) ([]market.Bar, error) {
	step := tf.StepMS()
	ts := sinceMS
	if rem := ts % step; rem != 0 {
		ts += step - rem
	}
	var out []market.Bar
	for len(out) < limit && ts < g.endMS {
		out = append(out, market.Bar{TS: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3})
		ts += step
	}
	return out, nil
}

func (g *genSource) FetchTradesPage(_ context.Context, _ string, sinceMS int64, limit int) ([]market.Tick, error) {
	var out []market.Tick
	for _, tk := range g.ticks {
		if tk.TS < sinceMS {
			continue
		}
		out = append(out, tk)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type failingSource struct{}

func (failingSource) Name() string { return "fakex" }

func (failingSource) FetchOHLCVPage(context.Context, string, market.Timeframe, int64, int) ([]market.Bar, error) {
	return nil, errors.New("venue unavailable")
}

func (failingSource) FetchTradesPage(context.Context, string, int64, int) ([]market.Tick, error) {
	return nil, errors.New("venue unavailable")
}

func tf1m(t *testing.T) market.Timeframe {
	t.Helper()
	tf, err := market.ParseTimeframe("1m")
	require.NoError(t, err)
	return tf
}

func TestRunCollectsAndRegisters(t *testing.T) {
	d, err := run.Create(t.TempDir(), nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &genSource{
		endMS: now.UnixMilli(),
		ticks: []market.Tick{
			{TS: now.Add(-45 * time.Minute).UnixMilli(), Price: 10, Amount: 1, Side: market.SideBuy, TradeID: "1"},
			{TS: now.Add(-20 * time.Minute).UnixMilli(), Price: 11, Amount: 2, Side: market.SideSell, TradeID: "2"},
			{TS: now.Add(-10 * time.Minute).UnixMilli(), Price: 12, Amount: 3, Side: market.SideBuy, TradeID: "3"},
			{TS: now.Add(-5 * time.Minute).UnixMilli(), Price: 13, Amount: 4, Side: market.SideSell, TradeID: "4"},
		},
	}
	opts := Options{
		Symbol:    "BTC/USDT",
		Timeframe: tf1m(t),
		Days:      1,
		PageSize:  500,
		Trades: TradeOptions{
			Enabled:       true,
			WindowMinutes: 30,
			MaxRows:       100,
			PageSize:      2,
		},
		Now: func() time.Time { return now },
	}
	require.NoError(t, Run(context.Background(), d, src, opts))

	bars, err := dataset.ReadBars(d.Join("ohlcv_fakex_BTC-USDT_1m.parquet"))
	require.NoError(t, err)
	assert.Len(t, bars, 24*60)

	ticks, err := dataset.ReadTicks(d.Join("trades_fakex_BTC-USDT.parquet"))
	require.NoError(t, err)
	assert.Len(t, ticks, 3) // the 45-minute-old tick is outside the window

	m, err := d.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{"ohlcv_fakex_BTC-USDT_1m.parquet", "trades_fakex_BTC-USDT.parquet"}, m.Artifacts.Data)
	assert.Equal(t, []string{"collect_data.log"}, m.Artifacts.Logs)

	raw, err := os.ReadFile(d.ManifestPath())
	require.NoError(t, err)
	params := gjson.GetBytes(raw, "parameters.data_collection")
	require.True(t, params.Exists())
	assert.Equal(t, "fakex", params.Get("source").String())
	assert.Equal(t, "BTC/USDT", params.Get("symbol").String())
	assert.Equal(t, "1m", params.Get("timeframe").String())
	assert.Equal(t, int64(1), params.Get("ohlcv_window.days").Int())
	assert.Equal(t, "2026-02-28T12:00:00Z", params.Get("ohlcv_window.since_utc").String())
	assert.Equal(t, int64(1440), params.Get("ohlcv_rows").Int())
	assert.True(t, params.Get("trades.enabled").Bool())
	assert.Equal(t, int64(3), params.Get("trades.rows").Int())
	assert.Equal(t, int64(30), params.Get("trades.window.minutes").Int())
	assert.False(t, params.Get("trades.limitation.limited").Bool())
	assert.NotEmpty(t, params.Get("trades.limitation.detail").String())

	report, err := ledger.Verify(context.Background(), d.LedgerPath())
	require.NoError(t, err)
	assert.True(t, report.OK)

	logBytes, err := os.ReadFile(d.Join("collect_data.log"))
	require.NoError(t, err)
	logText := string(logBytes)
	assert.Contains(t, logText, "ohlcv_rows=1440")
	assert.Contains(t, logText, "trades_rows=3")
	for _, line := range strings.Split(strings.TrimRight(logText, "\n"), "\n") {
		assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z\] `, line)
	}
}

func TestRunFlagsTradeCap(t *testing.T) {
	d, err := run.Create(t.TempDir(), nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &genSource{
		endMS: now.UnixMilli(),
		ticks: []market.Tick{
			{TS: now.Add(-9 * time.Minute).UnixMilli(), Price: 10, Amount: 1, Side: market.SideBuy, TradeID: "1"},
			{TS: now.Add(-8 * time.Minute).UnixMilli(), Price: 11, Amount: 1, Side: market.SideBuy, TradeID: "2"},
			{TS: now.Add(-7 * time.Minute).UnixMilli(), Price: 12, Amount: 1, Side: market.SideBuy, TradeID: "3"},
		},
	}
	opts := Options{
		Symbol:    "BTC/USDT",
		Timeframe: tf1m(t),
		Days:      1,
		PageSize:  2000,
		Trades: TradeOptions{
			Enabled:       true,
			WindowMinutes: 10,
			MaxRows:       2,
			PageSize:      2,
		},
		Now: func() time.Time { return now },
	}
	require.NoError(t, Run(context.Background(), d, src, opts))

	raw, err := os.ReadFile(d.ManifestPath())
	require.NoError(t, err)
	limitation := gjson.GetBytes(raw, "parameters.data_collection.trades.limitation")
	assert.True(t, limitation.Get("limited").Bool())
	assert.Contains(t, limitation.Get("reason").String(), "record cap")
}

func TestRunAbortsUnregisteredOnPageError(t *testing.T) {
	d, err := run.Create(t.TempDir(), nil)
	require.NoError(t, err)

	opts := Options{
		Symbol:    "BTC/USDT",
		Timeframe: tf1m(t),
		Days:      1,
		PageSize:  100,
	}
	err = Run(context.Background(), d, failingSource{}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect ohlcv")

	m, err := d.LoadManifest()
	require.NoError(t, err)
	assert.Empty(t, m.Artifacts.Data)
	assert.Empty(t, m.Artifacts.Logs)

	_, err = os.Stat(d.LedgerPath())
	assert.True(t, os.IsNotExist(err))
}
