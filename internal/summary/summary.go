// Package summary implements the descriptive-statistics stage: it reads the
// run's registered parquet datasets, computes audit-ready tables and writes
// them as markdown, CSV and JSON under tables/, registered and hashed like
// every other artifact.
package summary

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"tickvault/internal/dataset"
	"tickvault/internal/logger"
	"tickvault/internal/manifest"
	"tickvault/internal/market"
	"tickvault/internal/pkg/jsonutil"
	"tickvault/internal/run"
	"tickvault/internal/stage"
)

// StageName keys this stage's block under manifest parameters.
const StageName = "data_summary"

const logName = "data_summary"

var tableNames = []string{"data_summary.md", "data_summary.csv", "data_summary.json"}

// Options configure one summarize invocation.
type Options struct {
	// IntensityBucketMS is the trade-intensity bucket width. Zero means one
	// minute.
	IntensityBucketMS int64

	// Now overrides the wall clock in tests.
	Now func() time.Time
}

// Params is the data_summary parameter block recorded in the manifest.
type Params struct {
	GeneratedUTC string   `json:"generated_utc"`
	Tables       []string `json:"tables"`
}

// Summary is the unified table persisted as tables/data_summary.json.
type Summary struct {
	GeneratedUTC string       `json:"generated_utc"`
	RunID        string       `json:"run_id"`
	OHLCV        *OHLCVStats  `json:"ohlcv"`
	Trades       *TradesStats `json:"trades"`
	Notes        []string     `json:"notes"`
}

// OHLCVStats describes the bar dataset. Moment and quantile fields are nil
// (JSON null) when the underlying sample is empty or degenerate.
type OHLCVStats struct {
	Rows             int      `json:"rows"`
	StartUTC         string   `json:"start_utc"`
	EndUTC           string   `json:"end_utc"`
	Columns          []string `json:"columns"`
	MissingRateClose float64  `json:"missing_rate_close"`
	LogretMean       *float64 `json:"logret_mean"`
	LogretStd        *float64 `json:"logret_std"`
	LogretKurtosis   *float64 `json:"logret_kurtosis"`
	LogretQ01        *float64 `json:"logret_q01"`
	LogretQ05        *float64 `json:"logret_q05"`
	LogretQ50        *float64 `json:"logret_q50"`
	LogretQ95        *float64 `json:"logret_q95"`
	LogretQ99        *float64 `json:"logret_q99"`
}

// TradesStats describes the tick dataset.
type TradesStats struct {
	Rows          int             `json:"rows"`
	StartUTC      string          `json:"start_utc"`
	EndUTC        string          `json:"end_utc"`
	Columns       []string        `json:"columns"`
	InterCount    int             `json:"interarrival_count"`
	InterMeanS    *float64        `json:"interarrival_mean_s"`
	InterStdS     *float64        `json:"interarrival_std_s"`
	InterQ01      *float64        `json:"interarrival_s_q01"`
	InterQ05      *float64        `json:"interarrival_s_q05"`
	InterQ50      *float64        `json:"interarrival_s_q50"`
	InterQ95      *float64        `json:"interarrival_s_q95"`
	InterQ99      *float64        `json:"interarrival_s_q99"`
	IntensityBars int             `json:"intensity_bars"`
	IntensityMean *float64        `json:"intensity_mean_trades_per_min"`
	IntensityMax  *float64        `json:"intensity_max_trades_per_min"`
	TurnoverQuote decimal.Decimal `json:"turnover_quote"`
	BuyFlowQuote  decimal.Decimal `json:"buy_flow_quote"`
	SellFlowQuote decimal.Decimal `json:"sell_flow_quote"`
}

var summaryNotes = []string{
	"All statistics are descriptive.",
	"Inputs are public market observables only (OHLCV and trades).",
}

// Run executes the stage against an existing run directory. The OHLCV
// dataset is required; the trades dataset is summarized when registered.
func Run(d *run.Dir, opts Options) error {
	lg, err := run.OpenStageLog(d, logName)
	if err != nil {
		return err
	}
	res, runErr := summarizeInto(d, opts, lg)
	if cerr := lg.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	if runErr != nil {
		return runErr
	}
	return stage.Finalize(d, StageName, res)
}

func summarizeInto(d *run.Dir, opts Options, lg *run.StageLog) (stage.Result, error) {
	m, err := d.LoadManifest()
	if err != nil {
		return stage.Result{}, err
	}
	ohlcvRel := findArtifact(m, "ohlcv_", ".parquet")
	if ohlcvRel == "" {
		return stage.Result{}, fmt.Errorf("summarize: no ohlcv parquet registered under artifacts.data")
	}
	tradesRel := findArtifact(m, "trades_", ".parquet")

	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	generated := nowFn().UTC().Format(time.RFC3339)

	bars, err := dataset.ReadBars(d.Join(ohlcvRel))
	if err != nil {
		return stage.Result{}, fmt.Errorf("summarize: %w", err)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].TS < bars[j].TS })
	lg.Logf("ohlcv rows=%d file=%s", len(bars), ohlcvRel)

	sum := &Summary{
		GeneratedUTC: generated,
		RunID:        d.ID(),
		OHLCV:        summarizeOHLCV(bars),
		Notes:        summaryNotes,
	}
	if tradesRel != "" {
		ticks, err := dataset.ReadTicks(d.Join(tradesRel))
		if err != nil {
			return stage.Result{}, fmt.Errorf("summarize: %w", err)
		}
		sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].TS < ticks[j].TS })
		lg.Logf("trades rows=%d file=%s", len(ticks), tradesRel)
		sum.Trades = summarizeTrades(ticks, opts.IntensityBucketMS)
	} else {
		lg.Logf("trades dataset not registered, skipping")
	}

	if err := os.MkdirAll(d.Join("tables"), 0o755); err != nil {
		return stage.Result{}, fmt.Errorf("summarize: create tables dir: %w", err)
	}
	if err := os.WriteFile(d.Join("tables/data_summary.md"), []byte(renderMarkdown(sum)), 0o644); err != nil {
		return stage.Result{}, fmt.Errorf("summarize: write markdown: %w", err)
	}
	csvBytes, err := renderCSV(sum)
	if err != nil {
		return stage.Result{}, fmt.Errorf("summarize: render csv: %w", err)
	}
	if err := os.WriteFile(d.Join("tables/data_summary.csv"), csvBytes, 0o644); err != nil {
		return stage.Result{}, fmt.Errorf("summarize: write csv: %w", err)
	}
	if err := jsonutil.WriteStableFile(d.Join("tables/data_summary.json"), sum); err != nil {
		return stage.Result{}, fmt.Errorf("summarize: write json: %w", err)
	}
	for _, name := range tableNames {
		lg.Logf("wrote tables/%s", name)
	}
	logger.Infof("summarize: wrote %d tables for run %s", len(tableNames), d.ID())

	registered := make([]string, 0, len(tableNames))
	for _, name := range tableNames {
		registered = append(registered, "tables/"+name)
	}
	return stage.Result{
		Tables: registered,
		Logs:   []string{lg.Name()},
		Params: Params{GeneratedUTC: generated, Tables: tableNames},
	}, nil
}

func findArtifact(m *manifest.Manifest, prefix, suffix string) string {
	for _, name := range m.Artifacts.Data {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			return name
		}
	}
	return ""
}

func summarizeOHLCV(bars []market.Bar) *OHLCVStats {
	s := &OHLCVStats{
		Rows:    len(bars),
		Columns: []string{"ts", "open", "high", "low", "close", "volume"},
	}
	if len(bars) > 0 {
		s.StartUTC = isoMS(bars[0].TS)
		s.EndUTC = isoMS(bars[len(bars)-1].TS)
		missing := 0
		for _, b := range bars {
			if math.IsNaN(b.Close) {
				missing++
			}
		}
		s.MissingRateClose = float64(missing) / float64(len(bars))
	}
	lr := logReturns(bars)
	mean, std, q := describe(lr)
	s.LogretMean, s.LogretStd = mean, std
	s.LogretKurtosis = kurtosis(lr)
	s.LogretQ01, s.LogretQ05, s.LogretQ50, s.LogretQ95, s.LogretQ99 = q[0], q[1], q[2], q[3], q[4]
	return s
}

func summarizeTrades(ticks []market.Tick, bucketMS int64) *TradesStats {
	s := &TradesStats{
		Rows:    len(ticks),
		Columns: []string{"ts", "price", "amount", "side", "trade_id"},
	}
	if len(ticks) > 0 {
		s.StartUTC = isoMS(ticks[0].TS)
		s.EndUTC = isoMS(ticks[len(ticks)-1].TS)
	}

	inter := interArrivalSeconds(ticks)
	s.InterCount = len(inter)
	mean, std, q := describe(inter)
	s.InterMeanS, s.InterStdS = mean, std
	s.InterQ01, s.InterQ05, s.InterQ50, s.InterQ95, s.InterQ99 = q[0], q[1], q[2], q[3], q[4]

	counts := intensityCounts(ticks, bucketMS)
	s.IntensityBars = len(counts)
	if imean, _, _ := describe(counts); imean != nil {
		s.IntensityMean = imean
		s.IntensityMax = fptr(floats.Max(counts))
	}

	s.TurnoverQuote, s.BuyFlowQuote, s.SellFlowQuote = quoteFlows(ticks)
	return s
}

func isoMS(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
