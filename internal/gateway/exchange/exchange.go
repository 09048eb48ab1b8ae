// Package exchange defines the abstraction for historical market-data
// venues. This allows the collection pipeline to work with different
// backends without changing the fetch logic.
package exchange

import (
	"context"

	"tickvault/internal/market"
)

// Source serves historical market data one page at a time. A page may be
// shorter than the requested limit; an empty page signals exhaustion. Sources
// apply their own request throttling, independent of any pacing the caller
// adds between pages.
type Source interface {
	Name() string

	// FetchOHLCVPage returns bars with open time >= sinceMS, oldest first.
	FetchOHLCVPage(ctx context.Context, symbol string, tf market.Timeframe, sinceMS int64, limit int) ([]market.Bar, error)

	// FetchTradesPage returns trades with timestamp >= sinceMS, oldest first.
	// Venues may bound how far the page reaches past sinceMS.
	FetchTradesPage(ctx context.Context, symbol string, sinceMS int64, limit int) ([]market.Tick, error)
}
