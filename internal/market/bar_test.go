package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupSortBars(t *testing.T) {
	in := []Bar{
		{TS: 3000, Close: 3},
		{TS: 1000, Close: 1},
		{TS: 3000, Close: 99},
		{TS: 2000, Close: 2},
	}
	out := DedupSortBars(in)

	require.Len(t, out, 3)
	assert.Equal(t, []int64{1000, 2000, 3000}, []int64{out[0].TS, out[1].TS, out[2].TS})
	// first occurrence wins on duplicate timestamps
	assert.Equal(t, 3.0, out[2].Close)
}

func TestDedupSortBarsIdempotent(t *testing.T) {
	in := []Bar{
		{TS: 2000, Close: 9},
		{TS: 1000, Close: 8},
		{TS: 2000, Close: 7},
	}
	once := DedupSortBars(in)
	twice := DedupSortBars(once)
	assert.Equal(t, once, twice)
}

func TestDedupSortBarsEmpty(t *testing.T) {
	assert.Empty(t, DedupSortBars(nil))
}

func TestDedupSortTicks(t *testing.T) {
	in := []Tick{
		{TS: 1000, TradeID: "b", Price: 2},
		{TS: 1000, TradeID: "a", Price: 1},
		{TS: 500, TradeID: "z", Price: 9},
		{TS: 1000, TradeID: "a", Price: 42},
	}
	out := DedupSortTicks(in)

	require.Len(t, out, 3)
	assert.Equal(t, "z", out[0].TradeID)
	// same-millisecond ticks keep source order
	assert.Equal(t, "b", out[1].TradeID)
	assert.Equal(t, "a", out[2].TradeID)
	// first occurrence wins on duplicate (ts, id)
	assert.Equal(t, 1.0, out[2].Price)
}

func TestDedupSortTicksIdempotent(t *testing.T) {
	in := []Tick{
		{TS: 7, TradeID: "2"},
		{TS: 7, TradeID: "1"},
		{TS: 3, TradeID: "0"},
	}
	once := DedupSortTicks(in)
	twice := DedupSortTicks(once)
	assert.Equal(t, once, twice)
}
