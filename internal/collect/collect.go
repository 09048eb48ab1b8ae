// Package collect implements the data-collection stage: it pulls the
// configured OHLCV window (and optionally a trailing window of trade ticks)
// from a market-data source, persists both as parquet artifacts in the run
// directory and registers them through the manifest and checksum ledger.
package collect

import (
	"context"
	"fmt"
	"time"

	"tickvault/internal/dataset"
	"tickvault/internal/fetch"
	"tickvault/internal/gateway/exchange"
	"tickvault/internal/logger"
	"tickvault/internal/market"
	"tickvault/internal/pkg/symbol"
	"tickvault/internal/run"
	"tickvault/internal/stage"
)

// StageName keys this stage's block under manifest parameters.
const StageName = "data_collection"

const (
	logName       = "collect_data"
	millisPerDay  = 24 * 60 * 60 * 1000
	depthCaveat   = "trade depth may be limited by venue API policies"
	capHitMessage = "record cap reached before the window start"
)

// Options configure one collect invocation.
type Options struct {
	Symbol    string
	Timeframe market.Timeframe
	Days      int
	PageSize  int
	Sleep     time.Duration

	Trades TradeOptions

	// Now overrides the wall clock in tests.
	Now func() time.Time
}

type TradeOptions struct {
	Enabled       bool
	WindowMinutes int
	MaxRows       int
	PageSize      int
}

// Params is the data_collection parameter block recorded in the manifest.
type Params struct {
	Source      string      `json:"source"`
	Symbol      string      `json:"symbol"`
	Timeframe   string      `json:"timeframe"`
	OHLCVWindow Window      `json:"ohlcv_window"`
	OHLCVRows   int         `json:"ohlcv_rows"`
	Trades      TradesBlock `json:"trades"`
	PageSize    int         `json:"page_size"`
	SleepS      float64     `json:"sleep_s"`
}

type Window struct {
	SinceUTC string `json:"since_utc"`
	UntilUTC string `json:"until_utc"`
	Days     int    `json:"days,omitempty"`
	Minutes  int    `json:"minutes,omitempty"`
}

type TradesBlock struct {
	Enabled    bool       `json:"enabled"`
	Window     *Window    `json:"window"`
	Rows       int        `json:"rows"`
	MaxRows    int        `json:"max_rows,omitempty"`
	Limitation Limitation `json:"limitation"`
}

// Limitation records that the collected trade depth is bounded by something
// other than the requested window.
type Limitation struct {
	Limited bool   `json:"limited"`
	Reason  string `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Run executes the stage against an existing run directory. Nothing is
// registered until every dataset has been fetched and written, so an aborted
// invocation leaves the manifest and ledger untouched.
func Run(ctx context.Context, d *run.Dir, src exchange.Source, opts Options) error {
	lg, err := run.OpenStageLog(d, logName)
	if err != nil {
		return err
	}
	res, runErr := collectInto(ctx, d, src, opts, lg)
	if cerr := lg.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	if runErr != nil {
		return runErr
	}
	return stage.Finalize(d, StageName, res)
}

func collectInto(ctx context.Context, d *run.Dir, src exchange.Source, opts Options, lg *run.StageLog) (stage.Result, error) {
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().UTC()
	untilMS := now.UnixMilli()
	sinceMS := untilMS - int64(opts.Days)*millisPerDay
	sinceUTC := time.UnixMilli(sinceMS).UTC()

	lg.Logf("run_id=%s source=%s symbol=%s timeframe=%s", d.ID(), src.Name(), opts.Symbol, opts.Timeframe.Key)
	lg.Logf("ohlcv window %s .. %s (days=%d)", sinceUTC.Format(time.RFC3339), now.Format(time.RFC3339), opts.Days)

	bars, err := fetch.FetchBars(ctx, src, opts.Timeframe, fetch.Request{
		Symbol:   opts.Symbol,
		SinceMS:  sinceMS,
		UntilMS:  untilMS,
		PageSize: opts.PageSize,
		Sleep:    opts.Sleep,
	})
	if err != nil {
		return stage.Result{}, fmt.Errorf("collect ohlcv: %w", err)
	}
	slug := symbol.FileSlug(opts.Symbol)
	ohlcvName := fmt.Sprintf("ohlcv_%s_%s_%s.parquet", src.Name(), slug, opts.Timeframe.Key)
	if err := dataset.WriteBars(d.Join(ohlcvName), bars); err != nil {
		return stage.Result{}, err
	}
	lg.Logf("ohlcv_rows=%d file=%s", len(bars), ohlcvName)
	logger.Infof("collect: %d bars -> %s", len(bars), ohlcvName)

	res := stage.Result{
		Data: []string{ohlcvName},
		Logs: []string{lg.Name()},
	}
	trades := TradesBlock{
		Enabled:    opts.Trades.Enabled,
		Limitation: Limitation{Detail: depthCaveat},
	}
	if opts.Trades.Enabled {
		tradesSinceMS := untilMS - int64(opts.Trades.WindowMinutes)*60_000
		tradesSince := time.UnixMilli(tradesSinceMS).UTC()
		lg.Logf("trades window %s .. %s (minutes=%d max_rows=%d)",
			tradesSince.Format(time.RFC3339), now.Format(time.RFC3339), opts.Trades.WindowMinutes, opts.Trades.MaxRows)

		ticks, err := fetch.FetchTicks(ctx, src, fetch.Request{
			Symbol:    opts.Symbol,
			SinceMS:   tradesSinceMS,
			UntilMS:   untilMS,
			PageSize:  opts.Trades.PageSize,
			Sleep:     opts.Sleep,
			RecordCap: opts.Trades.MaxRows,
		})
		if err != nil {
			return stage.Result{}, fmt.Errorf("collect trades: %w", err)
		}
		tradesName := fmt.Sprintf("trades_%s_%s.parquet", src.Name(), slug)
		if err := dataset.WriteTicks(d.Join(tradesName), ticks); err != nil {
			return stage.Result{}, err
		}
		lg.Logf("trades_rows=%d file=%s", len(ticks), tradesName)
		logger.Infof("collect: %d ticks -> %s", len(ticks), tradesName)

		res.Data = append(res.Data, tradesName)
		trades.Window = &Window{
			SinceUTC: tradesSince.Format(time.RFC3339),
			UntilUTC: now.Format(time.RFC3339),
			Minutes:  opts.Trades.WindowMinutes,
		}
		trades.Rows = len(ticks)
		trades.MaxRows = opts.Trades.MaxRows
		if opts.Trades.MaxRows > 0 && len(ticks) >= opts.Trades.MaxRows {
			trades.Limitation.Limited = true
			trades.Limitation.Reason = capHitMessage
		}
	} else {
		lg.Logf("trades_enabled=false")
	}

	res.Params = Params{
		Source:    src.Name(),
		Symbol:    opts.Symbol,
		Timeframe: opts.Timeframe.Key,
		OHLCVWindow: Window{
			SinceUTC: sinceUTC.Format(time.RFC3339),
			UntilUTC: now.Format(time.RFC3339),
			Days:     opts.Days,
		},
		OHLCVRows: len(bars),
		Trades:    trades,
		PageSize:  opts.PageSize,
		SleepS:    opts.Sleep.Seconds(),
	}
	return res, nil
}
