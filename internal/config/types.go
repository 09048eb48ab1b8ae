package config

import "strings"

// Config is the full tickvault configuration tree.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Runs    RunsConfig    `yaml:"runs"`
	Source  SourceConfig  `yaml:"source"`
	Collect CollectConfig `yaml:"collect"`
	Summary SummaryConfig `yaml:"summary"`
	Figures FiguresConfig `yaml:"figures"`
	Server  ServerConfig  `yaml:"server"`
}

type AppConfig struct {
	LogLevel string `yaml:"log_level"`
	// LogFile duplicates log output into a file. Empty means stdout only.
	LogFile string `yaml:"log_file"`
}

// RunsConfig locates the runs root, the directory every run lives under.
type RunsConfig struct {
	Root string `yaml:"root"`
}

// SourceConfig selects and configures the market data source.
type SourceConfig struct {
	Name    string        `yaml:"name"`
	Binance BinanceConfig `yaml:"binance"`
}

type BinanceConfig struct {
	BaseURL         string      `yaml:"base_url"`
	TimeoutS        int         `yaml:"timeout_s"`
	RateLimitPerMin int         `yaml:"rate_limit_per_min"`
	Proxy           ProxyConfig `yaml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// CollectConfig shapes the data_collection stage.
type CollectConfig struct {
	Symbol    string       `yaml:"symbol"`
	Timeframe string       `yaml:"timeframe"`
	Days      int          `yaml:"days"`
	PageSize  int          `yaml:"page_size"`
	SleepS    float64      `yaml:"sleep_s"`
	Trades    TradesConfig `yaml:"trades"`
}

// TradesConfig shapes the optional trades dataset. The window is minutes,
// not days: venue trade history endpoints cap the per-request range hard.
type TradesConfig struct {
	Enabled       bool `yaml:"enabled"`
	WindowMinutes int  `yaml:"window_minutes"`
	MaxRows       int  `yaml:"max_rows"`
	PageSize      int  `yaml:"page_size"`
}

type SummaryConfig struct {
	IntensityBucketMS int64 `yaml:"intensity_bucket_ms"`
}

type FiguresConfig struct {
	Format     string `yaml:"format"`
	VolWindows []int  `yaml:"vol_windows"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// keySet tracks the key paths explicitly present in the config files, so an
// explicit zero value is not mistaken for an omitted one during defaulting.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault is one defaulting rule: apply fires when the key was not set
// explicitly and need reports the field as still empty.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
