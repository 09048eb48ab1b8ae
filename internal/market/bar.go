package market

import "sort"

// Bar is one OHLCV candle. TS is the bar open time in epoch milliseconds and
// is the natural key within a single symbol/timeframe collection.
type Bar struct {
	TS     int64   `json:"ts" parquet:"ts"`
	Open   float64 `json:"open" parquet:"open"`
	High   float64 `json:"high" parquet:"high"`
	Low    float64 `json:"low" parquet:"low"`
	Close  float64 `json:"close" parquet:"close"`
	Volume float64 `json:"volume" parquet:"volume"`
}

// DedupSortBars drops duplicate timestamps (first occurrence wins) and sorts
// ascending by timestamp. Running it on an already clean series is a no-op.
func DedupSortBars(bars []Bar) []Bar {
	seen := make(map[int64]struct{}, len(bars))
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if _, dup := seen[b.TS]; dup {
			continue
		}
		seen[b.TS] = struct{}{}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out
}
