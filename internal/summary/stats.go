package summary

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"tickvault/internal/market"
)

var quantileProbs = [5]float64{0.01, 0.05, 0.50, 0.95, 0.99}

func fptr(v float64) *float64 { return &v }

// describe computes the mean, the population standard deviation and the five
// standard quantiles. Empty input yields nil fields rather than NaN, which
// cannot survive JSON encoding.
func describe(x []float64) (mean, std *float64, q [5]*float64) {
	if len(x) == 0 {
		return nil, nil, q
	}
	m := stat.Mean(x, nil)
	var v float64
	for _, xi := range x {
		d := xi - m
		v += d * d
	}
	v /= float64(len(x))
	mean = fptr(m)
	std = fptr(math.Sqrt(v))

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	for i, p := range quantileProbs {
		q[i] = fptr(stat.Quantile(p, stat.LinInterp, sorted, nil))
	}
	return mean, std, q
}

// kurtosis is Pearson's m4 over the squared population variance. It needs at
// least four samples and nonzero variance.
func kurtosis(x []float64) *float64 {
	if len(x) < 4 {
		return nil
	}
	m := stat.Mean(x, nil)
	var v, m4 float64
	for _, xi := range x {
		d := xi - m
		d2 := d * d
		v += d2
		m4 += d2 * d2
	}
	n := float64(len(x))
	v /= n
	m4 /= n
	if v <= 0 {
		return nil
	}
	return fptr(m4 / (v * v))
}

// logReturns are the differences of log closes, skipping pairs where either
// close is non-positive or non-finite.
func logReturns(bars []market.Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Close, bars[i].Close
		if !(prev > 0) || !(cur > 0) {
			continue
		}
		r := math.Log(cur) - math.Log(prev)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// interArrivalSeconds are the positive timestamp gaps of a time-sorted tape,
// in seconds. Zero gaps (same-millisecond trades) are excluded.
func interArrivalSeconds(ticks []market.Tick) []float64 {
	out := make([]float64, 0, len(ticks))
	for i := 1; i < len(ticks); i++ {
		d := ticks[i].TS - ticks[i-1].TS
		if d > 0 {
			out = append(out, float64(d)/1000.0)
		}
	}
	return out
}

// intensityCounts buckets trades into fixed windows and returns the per-
// bucket trade counts in bucket order.
func intensityCounts(ticks []market.Tick, bucketMS int64) []float64 {
	if bucketMS <= 0 {
		bucketMS = 60_000
	}
	counts := make(map[int64]int)
	for _, tk := range ticks {
		counts[tk.TS-tk.TS%bucketMS]++
	}
	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, float64(counts[k]))
	}
	return out
}

// quoteFlows accumulates price*amount turnover, split by aggressor side.
// Decimal arithmetic keeps the sums exact regardless of tape length.
func quoteFlows(ticks []market.Tick) (turnover, buy, sell decimal.Decimal) {
	for _, tk := range ticks {
		v := decimal.NewFromFloat(tk.Price).Mul(decimal.NewFromFloat(tk.Amount))
		turnover = turnover.Add(v)
		if tk.Side == market.SideSell {
			sell = sell.Add(v)
		} else {
			buy = buy.Add(v)
		}
	}
	return turnover, buy, sell
}
