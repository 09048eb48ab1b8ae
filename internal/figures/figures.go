// Package figures implements the EDA stage: it reads the run's registered
// parquet datasets, builds the standard chart set with go-echarts and renders
// each chart under figures/, registered and hashed like every other artifact.
// PNG output needs a headless Chrome; when none is available the stage falls
// back to writing the chart HTML directly.
package figures

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tickvault/internal/dataset"
	"tickvault/internal/logger"
	"tickvault/internal/manifest"
	"tickvault/internal/run"
	"tickvault/internal/stage"
)

// StageName keys this stage's block under manifest parameters.
const StageName = "eda"

const logName = "eda_figures"

const histBins = 140

// Format selects the rendered figure file type.
type Format string

const (
	FormatPNG  Format = "png"
	FormatHTML Format = "html"
)

var defaultVolWindows = []int{30, 120}

var figureNotes = []string{
	"Descriptive EDA charts over the run's registered datasets.",
	"Volatility and drawdown series are regime proxies, not signals.",
	"Inter-arrival and intensity views summarize trade flow timing.",
}

// Options configure one figures invocation.
type Options struct {
	// Format is png or html. Empty means png, downgraded to html when no
	// headless Chrome answers the probe.
	Format Format

	// VolWindows are the realized-volatility rolling windows in bars. Empty
	// means 30 and 120.
	VolWindows []int

	// Now overrides the wall clock in tests.
	Now func() time.Time
}

// Params is the eda parameter block recorded in the manifest.
type Params struct {
	GeneratedUTC string   `json:"generated_utc"`
	FiguresCount int      `json:"figures_count"`
	Format       string   `json:"format"`
	Notes        []string `json:"notes"`
}

type figure struct {
	name  string
	chart chart
}

// Run executes the stage against an existing run directory. The OHLCV
// dataset is required; the trade figures are generated when a trades dataset
// is registered.
func Run(ctx context.Context, d *run.Dir, opts Options) error {
	lg, err := run.OpenStageLog(d, logName)
	if err != nil {
		return err
	}
	res, runErr := generateInto(ctx, d, opts, lg)
	if cerr := lg.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}
	if runErr != nil {
		return runErr
	}
	return stage.Finalize(d, StageName, res)
}

func generateInto(ctx context.Context, d *run.Dir, opts Options, lg *run.StageLog) (stage.Result, error) {
	m, err := d.LoadManifest()
	if err != nil {
		return stage.Result{}, err
	}
	ohlcvRel := findArtifact(m, "ohlcv_", ".parquet")
	if ohlcvRel == "" {
		return stage.Result{}, fmt.Errorf("figures: no ohlcv parquet registered under artifacts.data")
	}
	tradesRel := findArtifact(m, "trades_", ".parquet")

	format := opts.Format
	if format == "" {
		format = FormatPNG
	}
	if format == FormatPNG {
		if err := EnsureHeadlessAvailable(ctx); err != nil {
			lg.Logf("headless chrome unavailable (%v), falling back to html", err)
			format = FormatHTML
		}
	}
	windows := opts.VolWindows
	if len(windows) == 0 {
		windows = defaultVolWindows
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	generated := nowFn().UTC().Format(time.RFC3339)
	lg.Logf("run_id=%s format=%s vol_windows=%v", d.ID(), format, windows)

	bars, err := dataset.ReadBars(d.Join(ohlcvRel))
	if err != nil {
		return stage.Result{}, fmt.Errorf("figures: %w", err)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].TS < bars[j].TS })
	lg.Logf("ohlcv rows=%d file=%s", len(bars), ohlcvRel)

	feat := computeBarFeatures(bars)
	symbol := collectedSymbol(m)

	figs := []figure{
		{"01_close", closeChart(symbol, feat)},
		{"02_realized_vol", realizedVolChart(feat, windows)},
		{"03_drawdown", drawdownChart(feat)},
	}

	if tradesRel != "" {
		ticks, err := dataset.ReadTicks(d.Join(tradesRel))
		if err != nil {
			return stage.Result{}, fmt.Errorf("figures: %w", err)
		}
		sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].TS < ticks[j].TS })
		lg.Logf("trades rows=%d file=%s", len(ticks), tradesRel)

		hist := computeHistogram(interArrivalSeconds(ticks), histBins)
		bucketTS, counts := intensitySeries(ticks)
		figs = append(figs,
			figure{"04_trade_interarrival_hist", interArrivalHistChart(hist, false)},
			figure{"05_trade_interarrival_hist_logy", interArrivalHistChart(hist, true)},
			figure{"06_trade_intensity", intensityChart(bucketTS, counts)},
		)
	} else {
		lg.Logf("trades dataset not registered, skipping trade figures")
	}

	if err := os.MkdirAll(d.Join("figures"), 0o755); err != nil {
		return stage.Result{}, fmt.Errorf("figures: create figures dir: %w", err)
	}

	written := make([]string, 0, len(figs))
	for _, f := range figs {
		filename, err := writeFigure(ctx, d, f, format)
		if err != nil {
			return stage.Result{}, err
		}
		written = append(written, "figures/"+filename)
		lg.Logf("wrote figures/%s", filename)
	}
	logger.Infof("figures: wrote %d charts for run %s", len(written), d.ID())

	return stage.Result{
		Figures: written,
		Logs:    []string{lg.Name()},
		Params: Params{
			GeneratedUTC: generated,
			FiguresCount: len(written),
			Format:       string(format),
			Notes:        figureNotes,
		},
	}, nil
}

func writeFigure(ctx context.Context, d *run.Dir, f figure, format Format) (string, error) {
	html, err := renderChartHTML(f.chart)
	if err != nil {
		return "", fmt.Errorf("figures: render %s: %w", f.name, err)
	}
	filename := f.name + "." + string(format)
	out := d.Join("figures/" + filename)

	payload := html
	if format == FormatPNG {
		payload, err = renderHTMLToPNG(ctx, html, chartWidthPx, chartHeightPx+80)
		if err != nil {
			return "", fmt.Errorf("figures: screenshot %s: %w", f.name, err)
		}
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return "", fmt.Errorf("figures: write %s: %w", filename, err)
	}
	return filename, nil
}

func findArtifact(m *manifest.Manifest, prefix, suffix string) string {
	for _, name := range m.Artifacts.Data {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			return name
		}
	}
	return ""
}

// collectedSymbol pulls the symbol out of the collection stage's parameter
// block, tolerating its absence.
func collectedSymbol(m *manifest.Manifest) string {
	raw, ok := m.Parameters.Get("data_collection")
	if !ok {
		return ""
	}
	return gjson.GetBytes(raw, "symbol").String()
}
