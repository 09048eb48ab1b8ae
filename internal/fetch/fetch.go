// Package fetch implements the paginated history pull shared by the OHLCV
// and trades collectors. It drives a market-data source one page at a time
// over a time window, guaranteeing forward cursor progress even against
// misbehaving sources, and returns a clipped, deduplicated, time-ordered
// series.
package fetch

import (
	"context"
	"time"

	"tickvault/internal/gateway/exchange"
	"tickvault/internal/market"
)

// Request describes one history pull over [SinceMS, UntilMS).
type Request struct {
	Symbol   string
	SinceMS  int64
	UntilMS  int64
	PageSize int

	// Sleep is a fixed pause between page requests, on top of whatever
	// rate limiting the source applies itself.
	Sleep time.Duration

	// RecordCap stops the pull once at least this many records have been
	// accumulated. Zero means unlimited. The final page is kept whole, so
	// the result may exceed the cap by a partial page.
	RecordCap int
}

// FetchBars pulls the complete bar series for the request window.
func FetchBars(ctx context.Context, src exchange.Source, tf market.Timeframe, req Request) ([]market.Bar, error) {
	bars, err := collect(ctx, req, tf.StepMS(),
		func(b market.Bar) int64 { return b.TS },
		func(ctx context.Context, sinceMS int64, limit int) ([]market.Bar, error) {
			return src.FetchOHLCVPage(ctx, req.Symbol, tf, sinceMS, limit)
		})
	if err != nil {
		return nil, err
	}
	return market.DedupSortBars(clip(bars, req, func(b market.Bar) int64 { return b.TS })), nil
}

// FetchTicks pulls the complete trade series for the request window.
func FetchTicks(ctx context.Context, src exchange.Source, req Request) ([]market.Tick, error) {
	ticks, err := collect(ctx, req, 1,
		func(t market.Tick) int64 { return t.TS },
		func(ctx context.Context, sinceMS int64, limit int) ([]market.Tick, error) {
			return src.FetchTradesPage(ctx, req.Symbol, sinceMS, limit)
		})
	if err != nil {
		return nil, err
	}
	return market.DedupSortTicks(clip(ticks, req, func(t market.Tick) int64 { return t.TS })), nil
}

type pageFunc[T any] func(ctx context.Context, sinceMS int64, limit int) ([]T, error)

// collect runs the cursor loop. The cursor starts at SinceMS and, after every
// non-empty page, either jumps one past the page's last timestamp or, when
// that timestamp does not exceed the cursor, advances by stepMS. Either way
// it strictly increases, so the loop is bounded by the window size. A page
// error discards everything accumulated so far.
func collect[T any](ctx context.Context, req Request, stepMS int64, ts func(T) int64, page pageFunc[T]) ([]T, error) {
	if stepMS <= 0 {
		stepMS = 1
	}
	var out []T
	cursor := req.SinceMS
	for cursor < req.UntilMS {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := page(ctx, cursor, req.PageSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
		if last := ts(batch[len(batch)-1]); last > cursor {
			cursor = last + 1
		} else {
			cursor += stepMS
		}
		if req.RecordCap > 0 && len(out) >= req.RecordCap {
			break
		}
		if err := sleepWithContext(ctx, req.Sleep); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// clip drops records outside [SinceMS, UntilMS]. Records exactly at either
// bound are kept.
func clip[T any](in []T, req Request, ts func(T) int64) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		t := ts(v)
		if t < req.SinceMS || t > req.UntilMS {
			continue
		}
		out = append(out, v)
	}
	return out
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
