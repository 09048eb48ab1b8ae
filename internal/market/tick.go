package market

import "sort"

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Tick is one executed trade print. The natural key is (TS, TradeID): a
// source may report several trades in the same millisecond.
type Tick struct {
	TS      int64   `json:"ts" parquet:"ts"`
	Price   float64 `json:"price" parquet:"price"`
	Amount  float64 `json:"amount" parquet:"amount"`
	Side    string  `json:"side" parquet:"side"`
	TradeID string  `json:"trade_id" parquet:"trade_id"`
}

type tickKey struct {
	ts int64
	id string
}

// DedupSortTicks drops duplicate (timestamp, trade id) pairs keeping the first
// occurrence and sorts ascending by timestamp. The sort is stable so ticks in
// the same millisecond keep their source order, making the transform
// idempotent.
func DedupSortTicks(ticks []Tick) []Tick {
	seen := make(map[tickKey]struct{}, len(ticks))
	out := make([]Tick, 0, len(ticks))
	for _, t := range ticks {
		k := tickKey{ts: t.TS, id: t.TradeID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out
}
