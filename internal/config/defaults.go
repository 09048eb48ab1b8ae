package config

import "strings"

const (
	defaultLogLevel         = "info"
	defaultRunsRoot         = "runs"
	defaultSourceName       = "binance"
	defaultBinanceBaseURL   = "https://api.binance.com"
	defaultBinanceTimeoutS  = 15
	defaultBinanceRateLimit = 300
	defaultSymbol           = "BTC/USDT"
	defaultTimeframe        = "1m"
	defaultDays             = 90
	defaultPageSize         = 1000
	defaultSleepS           = 0.2
	defaultTradesWindowMin  = 60
	defaultTradesMaxRows    = 200_000
	defaultIntensityBucket  = 60_000
	defaultFiguresFormat    = "png"
	defaultServerListen     = ":8870"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Runs.applyDefaults(keys)
	c.Source.applyDefaults(keys)
	c.Collect.applyDefaults(keys)
	c.Summary.applyDefaults(keys)
	c.Figures.applyDefaults(keys)
	c.Server.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
	)
}

func (r *RunsConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("runs.root", &r.Root, defaultRunsRoot),
	)
}

func (s *SourceConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("source.name", &s.Name, defaultSourceName),
		stringFieldDefault("source.binance.base_url", &s.Binance.BaseURL, defaultBinanceBaseURL),
		fieldDefault{
			key:   "source.binance.timeout_s",
			need:  func() bool { return s.Binance.TimeoutS <= 0 },
			apply: func() { s.Binance.TimeoutS = defaultBinanceTimeoutS },
		},
		fieldDefault{
			key:   "source.binance.rate_limit_per_min",
			need:  func() bool { return s.Binance.RateLimitPerMin <= 0 },
			apply: func() { s.Binance.RateLimitPerMin = defaultBinanceRateLimit },
		},
	)
}

func (c *CollectConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("collect.symbol", &c.Symbol, defaultSymbol),
		stringFieldDefault("collect.timeframe", &c.Timeframe, defaultTimeframe),
		fieldDefault{
			key:   "collect.days",
			need:  func() bool { return c.Days <= 0 },
			apply: func() { c.Days = defaultDays },
		},
		fieldDefault{
			key:   "collect.page_size",
			need:  func() bool { return c.PageSize <= 0 },
			apply: func() { c.PageSize = defaultPageSize },
		},
		fieldDefault{
			key:   "collect.sleep_s",
			need:  func() bool { return c.SleepS <= 0 },
			apply: func() { c.SleepS = defaultSleepS },
		},
		fieldDefault{
			key:   "collect.trades.window_minutes",
			need:  func() bool { return c.Trades.WindowMinutes <= 0 },
			apply: func() { c.Trades.WindowMinutes = defaultTradesWindowMin },
		},
		fieldDefault{
			key:   "collect.trades.max_rows",
			need:  func() bool { return c.Trades.MaxRows <= 0 },
			apply: func() { c.Trades.MaxRows = defaultTradesMaxRows },
		},
		fieldDefault{
			key:   "collect.trades.page_size",
			need:  func() bool { return c.Trades.PageSize <= 0 },
			apply: func() { c.Trades.PageSize = defaultPageSize },
		},
	)
}

func (s *SummaryConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "summary.intensity_bucket_ms",
			need:  func() bool { return s.IntensityBucketMS <= 0 },
			apply: func() { s.IntensityBucketMS = defaultIntensityBucket },
		},
	)
}

func (f *FiguresConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("figures.format", &f.Format, defaultFiguresFormat),
	)
	if len(f.VolWindows) == 0 {
		f.VolWindows = []int{30, 120}
	}
}

func (s *ServerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("server.listen", &s.Listen, defaultServerListen),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
