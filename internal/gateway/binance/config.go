package binance

import (
	"strings"
	"time"
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	// RateLimitPerMin caps REST requests per minute across both the klines
	// and aggTrades endpoints.
	RateLimitPerMin int

	ProxyEnabled bool
	ProxyURL     string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://api.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.RateLimitPerMin <= 0 {
		out.RateLimitPerMin = 300
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	return out
}
