package summary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickvault/internal/market"
)

func TestDescribe(t *testing.T) {
	mean, std, q := describe(nil)
	assert.Nil(t, mean)
	assert.Nil(t, std)
	for _, p := range q {
		assert.Nil(t, p)
	}

	mean, std, q = describe([]float64{5, 1, 4, 2, 3})
	require.NotNil(t, mean)
	require.NotNil(t, std)
	assert.InDelta(t, 3, *mean, 1e-12)
	assert.InDelta(t, math.Sqrt2, *std, 1e-12) // population std
	for _, p := range q {
		require.NotNil(t, p)
		assert.GreaterOrEqual(t, *p, 1.0)
		assert.LessOrEqual(t, *p, 5.0)
	}
	for i := 1; i < len(q); i++ {
		assert.LessOrEqual(t, *q[i-1], *q[i])
	}

	// Degenerate sample: every quantile is the constant.
	mean, std, q = describe([]float64{2, 2, 2, 2})
	assert.InDelta(t, 2, *mean, 1e-12)
	assert.InDelta(t, 0, *std, 1e-12)
	for _, p := range q {
		require.NotNil(t, p)
		assert.InDelta(t, 2, *p, 1e-12)
	}
}

func TestKurtosis(t *testing.T) {
	assert.Nil(t, kurtosis([]float64{1, 2, 3}))
	assert.Nil(t, kurtosis([]float64{2, 2, 2, 2})) // zero variance

	k := kurtosis([]float64{1, 1, 1, 5})
	require.NotNil(t, k)
	// mean 2, population variance 3, fourth moment 21.
	assert.InDelta(t, 21.0/9.0, *k, 1e-12)
}

func TestLogReturns(t *testing.T) {
	bars := []market.Bar{
		{TS: 0, Close: 100},
		{TS: 1, Close: 200},
		{TS: 2, Close: 400},
		{TS: 3, Close: 0}, // dropped, and the next pair with it
		{TS: 4, Close: 400},
		{TS: 5, Close: 400},
	}
	lr := logReturns(bars)
	require.Len(t, lr, 3)
	assert.InDelta(t, math.Log(2), lr[0], 1e-12)
	assert.InDelta(t, math.Log(2), lr[1], 1e-12)
	assert.InDelta(t, 0, lr[2], 1e-12)
}

func TestInterArrivalSeconds(t *testing.T) {
	ticks := []market.Tick{
		{TS: 1000},
		{TS: 1000}, // zero gap excluded
		{TS: 3000},
		{TS: 63_000},
	}
	inter := interArrivalSeconds(ticks)
	require.Len(t, inter, 2)
	assert.InDelta(t, 2, inter[0], 1e-12)
	assert.InDelta(t, 60, inter[1], 1e-12)
}

func TestIntensityCounts(t *testing.T) {
	ticks := []market.Tick{
		{TS: 0},
		{TS: 1000},
		{TS: 59_999},
		{TS: 60_000},
		{TS: 120_001},
	}
	counts := intensityCounts(ticks, 60_000)
	assert.Equal(t, []float64{3, 1, 1}, counts)

	assert.Empty(t, intensityCounts(nil, 60_000))
}

func TestQuoteFlows(t *testing.T) {
	ticks := []market.Tick{
		{Price: 10, Amount: 2, Side: market.SideBuy},
		{Price: 3, Amount: 1, Side: market.SideSell},
	}
	turnover, buy, sell := quoteFlows(ticks)
	assert.Equal(t, "23", turnover.String())
	assert.Equal(t, "20", buy.String())
	assert.Equal(t, "3", sell.String())
}
