package gateway

import (
	"fmt"
	"strings"
	"time"

	tvcfg "tickvault/internal/config"
	"tickvault/internal/gateway/binance"
	"tickvault/internal/gateway/exchange"
)

// NewSourceFromConfig builds the configured market data source. Unknown
// source names fail here so a typo cannot silently collect from the wrong
// venue.
func NewSourceFromConfig(cfg *tvcfg.Config) (exchange.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	src := cfg.Source
	switch strings.ToLower(strings.TrimSpace(src.Name)) {
	case "", "binance":
		b := src.Binance
		return binance.New(binance.Config{
			RESTBaseURL:     b.BaseURL,
			HTTPTimeout:     time.Duration(b.TimeoutS) * time.Second,
			RateLimitPerMin: b.RateLimitPerMin,
			ProxyEnabled:    b.Proxy.Enabled,
			ProxyURL:        b.Proxy.URL,
		})
	default:
		return nil, fmt.Errorf("unsupported market source: %s", src.Name)
	}
}
