package figures

import (
	"fmt"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	chartWidthPx  = 1200
	chartHeightPx = 560

	colorClose     = "#3b82f6"
	colorVolFast   = "#f59e0b"
	colorVolSlow   = "#ef4444"
	colorDrawdown  = "#8b5cf6"
	colorHist      = "#60a5fa"
	colorIntensity = "#10b981"
)

func newLineChart(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "left"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "UTC", SplitNumber: 8}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func newBarChart(title, subtitle, yName string, logY bool) *charts.Bar {
	yAxis := opts.YAxis{Name: yName}
	if logY {
		yAxis.Type = "log"
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "left"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "inter-arrival (s)", SplitNumber: 10}),
		charts.WithYAxisOpts(yAxis),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	return bar
}

func timeAxis(ts []int64) []string {
	x := make([]string, len(ts))
	for i, v := range ts {
		x[i] = time.UnixMilli(v).UTC().Format("01-02 15:04")
	}
	return x
}

// lineData converts a float series to chart points, turning NaN into nil so
// warmup gaps render as gaps instead of zeroes.
func lineData(series []float64) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{Value: nil}
		} else {
			data[i] = opts.LineData{Value: v}
		}
	}
	return data
}

func closeChart(symbol string, f barFeatures) *charts.Line {
	title := "Close"
	if symbol != "" {
		title = fmt.Sprintf("Close %s", symbol)
	}
	line := newLineChart(title, "last price per bar", "price")
	line.SetXAxis(timeAxis(f.ts))
	line.AddSeries("close", lineData(f.close),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorClose, Width: 1.5}))
	return line
}

func realizedVolChart(f barFeatures, windows []int) *charts.Line {
	line := newLineChart("Realized Volatility", "rolling std of log returns, sqrt-of-window scaled", "volatility")
	line.SetXAxis(timeAxis(f.ts))
	colors := []string{colorVolFast, colorVolSlow, colorDrawdown}
	for i, w := range windows {
		color := colors[i%len(colors)]
		line.AddSeries(fmt.Sprintf("RV(%d)", w), lineData(realizedVol(f.logret, w)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 1.5}))
	}
	return line
}

func drawdownChart(f barFeatures) *charts.Line {
	line := newLineChart("Log Drawdown", "cumulative log return minus running peak", "drawdown (log)")
	line.SetXAxis(timeAxis(f.ts))
	line.AddSeries("drawdown", lineData(f.drawdown),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown, Width: 1.5}))
	return line
}

func interArrivalHistChart(h histogram, logY bool) *charts.Bar {
	title := "Trade Inter-arrival"
	subtitle := "seconds between consecutive trades"
	yName := "count"
	if logY {
		title += " (log-y)"
		subtitle = "tail diagnostic"
		yName = "count (log)"
	}
	bar := newBarChart(title, subtitle, yName, logY)
	data := make([]opts.BarData, len(h.counts))
	for i, c := range h.counts {
		// Zero buckets plot as gaps on the log axis.
		if logY && c == 0 {
			data[i] = opts.BarData{Value: nil}
			continue
		}
		data[i] = opts.BarData{Value: c, ItemStyle: &opts.ItemStyle{Color: colorHist}}
	}
	bar.SetXAxis(h.labels)
	bar.AddSeries("count", data)
	return bar
}

func intensityChart(ts []int64, counts []float64) *charts.Line {
	line := newLineChart("Trade Intensity", "trades per minute", "trades/min")
	line.SetXAxis(timeAxis(ts))
	line.AddSeries("trades/min", lineData(counts),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorIntensity, Width: 1.5}))
	return line
}
