package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	binanceapi "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"tickvault/internal/market"
	symbolpkg "tickvault/internal/pkg/symbol"
)

const (
	// maxPageLimit is the venue cap for both klines and aggTrades pages.
	maxPageLimit = 1000

	// aggTradesMaxWindow is the widest startTime..endTime span the
	// aggTrades endpoint accepts.
	aggTradesMaxWindow = time.Hour
)

// Source serves historical spot market data through the go-binance SDK.
type Source struct {
	cfg     Config
	client  *binanceapi.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := binanceapi.NewClient("", "")
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	perSec := float64(final.RateLimitPerMin) / 60.0
	return &Source{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}, nil
}

func (s *Source) Name() string { return "binance" }

func (s *Source) FetchOHLCVPage(ctx context.Context, symbol string, tf market.Timeframe, sinceMS int64, limit int) ([]market.Bar, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	// Binance requires symbols without slashes (e.g. BTCUSDT).
	cleanSymbol := symbolpkg.Exchange(symbol)
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	kls, err := s.client.NewKlinesService().
		Symbol(cleanSymbol).
		Interval(tf.SourceInterval).
		StartTime(sinceMS).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", cleanSymbol, tf.Key, err)
	}
	return convertKlines(kls), nil
}

func (s *Source) FetchTradesPage(ctx context.Context, symbol string, sinceMS int64, limit int) ([]market.Tick, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	cleanSymbol := symbolpkg.Exchange(symbol)
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	// The endpoint rejects windows of an hour or more, so each page is also
	// bounded in how far past sinceMS it reaches.
	end := sinceMS + aggTradesMaxWindow.Milliseconds() - 1
	trades, err := s.client.NewAggTradesService().
		Symbol(cleanSymbol).
		StartTime(sinceMS).
		EndTime(end).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance aggTrades %s: %w", cleanSymbol, err)
	}
	return convertAggTrades(trades), nil
}

func convertKlines(kls []*binanceapi.Kline) []market.Bar {
	out := make([]market.Bar, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Bar{
			TS:     kl.OpenTime,
			Open:   parseFloat(kl.Open),
			High:   parseFloat(kl.High),
			Low:    parseFloat(kl.Low),
			Close:  parseFloat(kl.Close),
			Volume: parseFloat(kl.Volume),
		})
	}
	return out
}

func convertAggTrades(trades []*binanceapi.AggTrade) []market.Tick {
	out := make([]market.Tick, 0, len(trades))
	for _, tr := range trades {
		if tr == nil {
			continue
		}
		// The buyer being the maker means the aggressor sold.
		side := market.SideBuy
		if tr.IsBuyerMaker {
			side = market.SideSell
		}
		out = append(out, market.Tick{
			TS:      tr.Timestamp,
			Price:   parseFloat(tr.Price),
			Amount:  parseFloat(tr.Quantity),
			Side:    side,
			TradeID: strconv.FormatInt(tr.AggTradeID, 10),
		})
	}
	return out
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
