package figures

import (
	"math"
	"sort"
	"strconv"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"

	"tickvault/internal/market"
)

// barFeatures holds the derived series the OHLCV charts plot. Every slice is
// aligned index-for-index with the input bars.
type barFeatures struct {
	ts       []int64
	close    []float64
	logret   []float64
	cumret   []float64
	drawdown []float64
}

// computeBarFeatures derives log returns, cumulative log return and log
// drawdown from the bar closes. logret[0] is a filler zero (no prior close);
// a non-positive or non-finite close also contributes a zero return so the
// cumulative series stays defined.
func computeBarFeatures(bars []market.Bar) barFeatures {
	n := len(bars)
	f := barFeatures{
		ts:       make([]int64, n),
		close:    make([]float64, n),
		logret:   make([]float64, n),
		cumret:   make([]float64, n),
		drawdown: make([]float64, n),
	}
	for i, b := range bars {
		f.ts[i] = b.TS
		f.close[i] = b.Close
	}
	for i := 1; i < n; i++ {
		prev, cur := f.close[i-1], f.close[i]
		if prev > 0 && cur > 0 && !math.IsNaN(prev) && !math.IsNaN(cur) {
			f.logret[i] = math.Log(cur / prev)
		}
	}
	peak := math.Inf(-1)
	acc := 0.0
	for i := 0; i < n; i++ {
		acc += f.logret[i]
		f.cumret[i] = acc
		if acc > peak {
			peak = acc
		}
		f.drawdown[i] = acc - peak
	}
	return f
}

// realizedVol is the rolling standard deviation of the log returns scaled by
// sqrt(window). Indexes below window are NaN: logret[0] is a filler zero, so
// windows touching it are dropped along with the usual warmup. A series
// shorter than the window has no valid window at all and yields nil.
func realizedVol(logret []float64, window int) []float64 {
	if window <= 1 || len(logret) <= window {
		return nil
	}
	out := talib.StdDev(logret, window, 1.0)
	scale := math.Sqrt(float64(window))
	for i := range out {
		if i < window {
			out[i] = math.NaN()
		} else {
			out[i] *= scale
		}
	}
	return out
}

// interArrivalSeconds converts sorted tick timestamps into the positive gaps
// between consecutive trades, in seconds.
func interArrivalSeconds(ticks []market.Tick) []float64 {
	out := make([]float64, 0, len(ticks))
	for i := 1; i < len(ticks); i++ {
		gap := ticks[i].TS - ticks[i-1].TS
		if gap > 0 {
			out = append(out, float64(gap)/1000.0)
		}
	}
	return out
}

// intensitySeries buckets ticks into whole minutes and returns the bucket
// start timestamps with the trade count per bucket. Empty minutes between
// buckets are not materialized.
func intensitySeries(ticks []market.Tick) ([]int64, []float64) {
	const bucketMS = 60_000
	counts := make(map[int64]float64, len(ticks))
	for _, t := range ticks {
		counts[t.TS-t.TS%bucketMS]++
	}
	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = counts[k]
	}
	return keys, vals
}

// histogram is a fixed-width binning of a sample, ready for a bar chart.
type histogram struct {
	labels []string
	counts []int
}

// computeHistogram bins values into bins equal-width buckets spanning the
// sample range. A degenerate range is padded by 0.5 on each side so a
// single-valued sample still lands in a real bucket.
func computeHistogram(values []float64, bins int) histogram {
	if len(values) == 0 || bins <= 0 {
		return histogram{}
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	labels := make([]string, bins)
	for i := range labels {
		center := lo + (float64(i)+0.5)*width
		labels[i] = strconv.FormatFloat(center, 'g', 4, 64)
	}
	return histogram{labels: labels, counts: counts}
}
