package summary

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"tickvault/internal/dataset"
	"tickvault/internal/ledger"
	"tickvault/internal/market"
	"tickvault/internal/run"
	"tickvault/internal/stage"
)

func newRunWithData(t *testing.T, withTrades bool) *run.Dir {
	t.Helper()
	d, err := run.Create(t.TempDir(), nil)
	require.NoError(t, err)

	const minute = int64(60_000)
	bars := []market.Bar{
		{TS: 0 * minute, Open: 100, High: 101, Low: 99, Close: 100, Volume: 5},
		{TS: 1 * minute, Open: 100, High: 102, Low: 100, Close: 101, Volume: 6},
		{TS: 2 * minute, Open: 101, High: 103, Low: 101, Close: 102, Volume: 7},
		{TS: 3 * minute, Open: 102, High: 104, Low: 102, Close: 103, Volume: 8},
	}
	require.NoError(t, dataset.WriteBars(d.Join("ohlcv_fakex_BTC-USDT_1m.parquet"), bars))
	data := []string{"ohlcv_fakex_BTC-USDT_1m.parquet"}

	if withTrades {
		ticks := []market.Tick{
			{TS: 0, Price: 10, Amount: 1, Side: market.SideBuy, TradeID: "1"},
			{TS: 1000, Price: 20, Amount: 1, Side: market.SideSell, TradeID: "2"},
			{TS: 61_000, Price: 30, Amount: 1, Side: market.SideBuy, TradeID: "3"},
			{TS: 61_000, Price: 40, Amount: 0.5, Side: market.SideBuy, TradeID: "4"},
		}
		require.NoError(t, dataset.WriteTicks(d.Join("trades_fakex_BTC-USDT.parquet"), ticks))
		data = append(data, "trades_fakex_BTC-USDT.parquet")
	}

	require.NoError(t, stage.Finalize(d, "data_collection", stage.Result{
		Data:   data,
		Params: map[string]any{"source": "fakex"},
	}))
	return d
}

func TestRunSummarizesAndRegisters(t *testing.T) {
	d := newRunWithData(t, true)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, Run(d, Options{Now: func() time.Time { return now }}))

	m, err := d.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"tables/data_summary.md",
		"tables/data_summary.csv",
		"tables/data_summary.json",
	}, m.Artifacts.Tables)
	assert.Contains(t, m.Artifacts.Logs, "data_summary.log")

	raw, err := os.ReadFile(d.Join("tables/data_summary.json"))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02T09:00:00Z", gjson.GetBytes(raw, "generated_utc").String())
	assert.Equal(t, d.ID(), gjson.GetBytes(raw, "run_id").String())
	assert.Equal(t, int64(4), gjson.GetBytes(raw, "ohlcv.rows").Int())
	assert.Equal(t, "1970-01-01T00:00:00Z", gjson.GetBytes(raw, "ohlcv.start_utc").String())
	assert.Equal(t, "1970-01-01T00:03:00Z", gjson.GetBytes(raw, "ohlcv.end_utc").String())
	assert.True(t, gjson.GetBytes(raw, "ohlcv.logret_mean").Exists())
	assert.NotEqual(t, gjson.Null, gjson.GetBytes(raw, "ohlcv.logret_mean").Type)
	assert.Equal(t, gjson.Null, gjson.GetBytes(raw, "ohlcv.logret_kurtosis").Type) // only 3 returns

	trades := gjson.GetBytes(raw, "trades")
	require.True(t, trades.Exists())
	assert.Equal(t, int64(4), trades.Get("rows").Int())
	assert.Equal(t, int64(2), trades.Get("interarrival_count").Int())
	assert.Equal(t, int64(2), trades.Get("intensity_bars").Int())
	assert.Equal(t, float64(2), trades.Get("intensity_mean_trades_per_min").Float())
	assert.Equal(t, float64(2), trades.Get("intensity_max_trades_per_min").Float())
	assert.Equal(t, "80", trades.Get("turnover_quote").String())
	assert.Equal(t, "60", trades.Get("buy_flow_quote").String())
	assert.Equal(t, "20", trades.Get("sell_flow_quote").String())

	md, err := os.ReadFile(d.Join("tables/data_summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Trades")
	assert.Contains(t, string(md), "| `turnover_quote` | 80 |")

	mraw, err := os.ReadFile(d.ManifestPath())
	require.NoError(t, err)
	params := gjson.GetBytes(mraw, "parameters.data_summary")
	require.True(t, params.Exists())
	assert.Equal(t, "2026-03-02T09:00:00Z", params.Get("generated_utc").String())
	assert.Equal(t, int64(3), params.Get("tables.#").Int())

	report, err := ledger.Verify(context.Background(), d.LedgerPath())
	require.NoError(t, err)
	assert.True(t, report.OK)
}

func TestRunWithoutTradesDataset(t *testing.T) {
	d := newRunWithData(t, false)

	require.NoError(t, Run(d, Options{}))

	raw, err := os.ReadFile(d.Join("tables/data_summary.json"))
	require.NoError(t, err)
	assert.Equal(t, gjson.Null, gjson.GetBytes(raw, "trades").Type)

	md, err := os.ReadFile(d.Join("tables/data_summary.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(md), "## Trades")
}

func TestRunRequiresOHLCVArtifact(t *testing.T) {
	d, err := run.Create(t.TempDir(), nil)
	require.NoError(t, err)

	err = Run(d, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ohlcv parquet")
}
